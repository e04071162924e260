package train

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// ClassMetrics are the held-out scores of one label.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report describes one trained classifier.
type Report struct {
	Name      string         `json:"name"`
	Accuracy  float64        `json:"accuracy"`
	TrainRows int            `json:"trainRows"`
	TestRows  int            `json:"testRows"`
	Classes   []ClassMetrics `json:"classes"`
}

// evaluate scores predictions against the truth. Labels index both slices.
func evaluate(name string, labels []string, truth, pred []int) Report {
	r := Report{Name: name, TestRows: len(truth)}
	if len(truth) == 0 {
		return r
	}
	tp := make([]int, len(labels))
	predicted := make([]int, len(labels))
	support := make([]int, len(labels))
	correct := 0
	for i := range truth {
		support[truth[i]]++
		predicted[pred[i]]++
		if truth[i] == pred[i] {
			tp[truth[i]]++
			correct++
		}
	}
	r.Accuracy = float64(correct) / float64(len(truth))
	for k, l := range labels {
		m := ClassMetrics{Label: l, Support: support[k]}
		if predicted[k] > 0 {
			m.Precision = float64(tp[k]) / float64(predicted[k])
		}
		if support[k] > 0 {
			m.Recall = float64(tp[k]) / float64(support[k])
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes = append(r.Classes, m)
	}
	return r
}

// Write prints the report as an aligned table.
func (r Report) Write(w io.Writer) error {
	fmt.Fprintf(w, "%s model: accuracy %.2f%% (%d train / %d test rows)\n",
		r.Name, r.Accuracy*100, r.TrainRows, r.TestRows)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "label\tprecision\trecall\tf1\tsupport\t")
	for _, c := range r.Classes {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	return tw.Flush()
}

// WriteDistribution prints label counts as a text bar chart, largest first.
func WriteDistribution(w io.Writer, title string, counts map[string]int) error {
	type kv struct {
		k string
		v int
	}
	var items []kv
	most, width := 0, 0
	for k, v := range counts {
		items = append(items, kv{k, v})
		most = max(most, v)
		width = max(width, len(k))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v != items[j].v {
			return items[i].v > items[j].v
		}
		return items[i].k < items[j].k
	})

	if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
		return err
	}
	for _, it := range items {
		bar := 0
		if most > 0 {
			bar = it.v * 40 / most
		}
		if _, err := fmt.Fprintf(w, "  %-*s %6d %s\n", width, it.k, it.v, strings.Repeat("#", bar)); err != nil {
			return err
		}
	}
	return nil
}
