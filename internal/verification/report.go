package verification

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// PrintReport renders one row per contract.
func PrintReport(w io.Writer, r Report) error {
	table := tablewriter.NewWriter(w)
	table.Header("Contract", "Address", "Outcome", "Detail")

	for _, res := range r.Results {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		if err := table.Append([]string{string(res.Contract), res.Address.Hex(), string(res.Outcome), detail}); err != nil {
			return err
		}
	}

	return table.Render()
}
