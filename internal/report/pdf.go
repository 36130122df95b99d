package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// maxPDFCustomers caps the per-customer table so huge datasets still
// render a readable document.
const maxPDFCustomers = 50

// RenderPDF renders a report as a PDF summary: segment tiers, top
// association rules, lifecycle transitions, the budget table and the
// highest-value customers.
func RenderPDF(title string, generatedAt time.Time, r Report) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8,
		text.NewCol(12, "Generated "+generatedAt.Format("2006-01-02 15:04 MST"), props.Text{Size: 9}),
	)
	if r.Offline {
		m.AddRow(8,
			text.NewCol(12, "Offline report: produced from synthetic data while the remote analyzer was unreachable.", props.Text{
				Size:  9,
				Style: fontstyle.Italic,
			}),
		)
	}

	addSegmentSection(m, r)
	addRuleSection(m, r)
	addTransitionSection(m, r)
	addBudgetSection(m, r)
	addCustomerSection(m, r)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func addSectionTitle(m core.Maroto, title string) {
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  13,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)
}

func addSegmentSection(m core.Maroto, r Report) {
	addSectionTitle(m, "Customer Segments")
	m.AddRow(8,
		text.NewCol(3, "Segment", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Customers", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Avg Recency", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Avg Frequency", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Avg Monetary", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, c := range r.Centroids {
		m.AddRow(7,
			text.NewCol(3, c.Label, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", c.Size), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.1f", c.AvgRecency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.1f", c.AvgFrequency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, fmt.Sprintf("%.2f", c.AvgMonetary), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addRuleSection(m core.Maroto, r Report) {
	addSectionTitle(m, "Association Rules")
	if len(r.Rules) == 0 {
		m.AddRow(7, text.NewCol(12, "No significant category pairings found.", props.Text{Size: 9}))
		return
	}
	m.AddRow(8,
		text.NewCol(6, "Rule", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Support", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Confidence", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Lift", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, rule := range r.Rules {
		m.AddRow(7,
			text.NewCol(6, rule.Antecedent+" => "+rule.Consequent, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%.2f", rule.Support), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.2f", rule.Confidence), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.2f", rule.Lift), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addTransitionSection(m core.Maroto, r Report) {
	addSectionTitle(m, "Lifecycle Transitions")
	m.AddRow(8,
		text.NewCol(4, "From", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "To", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Probability", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, t := range r.Transitions {
		m.AddRow(6,
			text.NewCol(4, t.From, props.Text{Size: 9}),
			text.NewCol(4, t.To, props.Text{Size: 9}),
			text.NewCol(4, fmt.Sprintf("%.2f", t.Probability), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addBudgetSection(m core.Maroto, r Report) {
	addSectionTitle(m, "Budget Recommendations")
	m.AddRow(8,
		text.NewCol(4, "Channel", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Spend", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "CAC", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "ROAS", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Suggested", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, ch := range r.Budget {
		m.AddRow(7,
			text.NewCol(4, ch.Channel, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%.0f", ch.CurrentSpend), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.0f", ch.CAC), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.1f", ch.ROAS), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%.0f", ch.SuggestedSpend), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addCustomerSection(m core.Maroto, r Report) {
	addSectionTitle(m, "Top Customers by CLV")

	customers := make([]int, len(r.AnalyzedData))
	for i := range customers {
		customers[i] = i
	}
	sort.SliceStable(customers, func(i, j int) bool {
		return r.AnalyzedData[customers[i]].CLV > r.AnalyzedData[customers[j]].CLV
	})
	if len(customers) > maxPDFCustomers {
		customers = customers[:maxPDFCustomers]
	}

	m.AddRow(8,
		text.NewCol(3, "Customer", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Segment", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "CLV", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Churn Risk", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Monetary", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, idx := range customers {
		p := r.AnalyzedData[idx]
		m.AddRow(6,
			text.NewCol(3, p.CustomerID, props.Text{Size: 9}),
			text.NewCol(2, p.Segment, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", p.CLV), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d%%", p.ChurnRisk), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, fmt.Sprintf("%.2f", p.Monetary), props.Text{Size: 9, Align: align.Right}),
		)
	}
}
