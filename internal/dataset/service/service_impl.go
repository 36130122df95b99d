package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/insight/internal/dataset/domain"
	"github.com/smallbiznis/insight/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dataset.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Parse(ctx context.Context, filename string, content []byte) ([]domain.Transaction, error) {
	_ = ctx
	return parseUpload(filename, content)
}

func (s *Service) Create(ctx context.Context, req domain.CreateDatasetRequest) (domain.Dataset, error) {
	txns, err := parseUpload(req.Filename, req.Content)
	if err != nil {
		return domain.Dataset{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(req.Filename)
	}

	return s.persist(ctx, name, domain.SourceUpload, txns)
}

func (s *Service) CreateSynthetic(ctx context.Context, name string, txns []domain.Transaction) (domain.Dataset, error) {
	if len(txns) == 0 {
		return domain.Dataset{}, domain.ErrNoRows
	}
	return s.persist(ctx, name, domain.SourceSynthetic, txns)
}

func (s *Service) persist(ctx context.Context, name string, source domain.Source, txns []domain.Transaction) (domain.Dataset, error) {
	id := s.genID.Generate()
	dataset := domain.Dataset{
		ID:        id,
		Slug:      fmt.Sprintf("%s-%s", slug.Make(name), id.String()),
		Name:      name,
		Source:    source,
		RowCount:  len(txns),
		CreatedAt: time.Now().UTC(),
	}

	for i := range txns {
		txns[i].ID = s.genID.Generate()
		txns[i].DatasetID = dataset.ID
	}

	if err := s.repo.Insert(ctx, s.db, &dataset, txns); err != nil {
		return domain.Dataset{}, err
	}

	s.log.Info("dataset stored",
		zap.String("dataset_id", dataset.ID.String()),
		zap.String("source", string(source)),
		zap.Int("rows", len(txns)),
	)
	return dataset, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetDatasetRequest) (domain.Dataset, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Dataset{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Dataset{}, err
	}
	if item == nil {
		return domain.Dataset{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListDatasetRequest) (domain.ListDatasetResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListDatasetResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(dataset *domain.Dataset) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        dataset.ID.String(),
			CreatedAt: dataset.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	datasets := make([]domain.Dataset, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		datasets = append(datasets, *item)
	}

	resp := domain.ListDatasetResponse{Datasets: datasets}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Transactions(ctx context.Context, req domain.GetDatasetRequest) ([]domain.Transaction, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	return s.repo.Transactions(ctx, s.db, id)
}

// Template is the downloadable upload template: the exact required header
// plus four example rows.
func (s *Service) Template() []byte {
	return []byte(strings.Join([]string{
		"CustomerID,Amount,Date,Category,Channel",
		"CUST-1001,120,2024-01-15,Electronics,Online",
		"CUST-1001,45,2024-01-15,Gadgets,Online",
		"CUST-1002,89,2024-02-03,Fashion,In-Store",
		"CUST-1003,230,2024-02-18,Sports,Mobile App",
		"",
	}, "\n"))
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
