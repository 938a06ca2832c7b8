package screener

import (
	"strconv"
	"strings"
)

// BuildResultCSV renders a run's signals as CSV with a header row, in the
// run's ranking order.
func BuildResultCSV(res Result) string {
	if len(res.Signals) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("symbol,interval,direction,points,score,last_close,broken_out,failed,description\n")
	for _, sig := range res.Signals {
		b.WriteString(sig.Symbol)
		b.WriteByte(',')
		b.WriteString(sig.Interval)
		b.WriteByte(',')
		b.WriteString(string(sig.Direction))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(sig.Points))
		b.WriteByte(',')
		if sig.Scored {
			b.WriteString(strconv.FormatFloat(sig.Score, 'f', 4, 64))
		}
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(sig.LastClose, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(sig.BrokenOut))
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(sig.Failed))
		b.WriteByte(',')
		b.WriteString(csvQuote(sig.Description))
		b.WriteByte('\n')
	}
	return b.String()
}

func csvQuote(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
