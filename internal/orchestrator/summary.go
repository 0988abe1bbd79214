package orchestrator

import (
	"io"
	"time"

	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/record"
	"github.com/olekukonko/tablewriter"
)

const (
	StatePending   State = "pending"
	StateDeploying State = "deploying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

type (
	State string

	Outcome struct {
		Network  string
		State    State
		Err      error
		Record   record.Record
		Duration time.Duration
	}

	// Summary holds one outcome per requested network in request order.
	Summary struct {
		Outcomes []Outcome
	}
)

func (s Summary) Succeeded() []string {
	return s.networks(StateSucceeded)
}

func (s Summary) Failed() []string {
	return s.networks(StateFailed)
}

// ExitCode is 1 if any network failed.
func (s Summary) ExitCode() int {
	if len(s.Failed()) > 0 {
		return 1
	}
	return 0
}

func (s Summary) networks(state State) []string {
	out := make([]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.State == state {
			out = append(out, o.Network)
		}
	}
	return out
}

// PrintSummary renders the outcome of every network as a table.
func PrintSummary(w io.Writer, s Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Network", "Status", "Duration", "Detail")

	for _, o := range s.Outcomes {
		detail := ""
		if o.Err != nil {
			detail = o.Err.Error()
		} else if vault, ok := o.Record.Contracts[contracts.NameHedgePodVault]; ok {
			detail = "HedgePodVault " + vault.Hex()
		}
		if err := table.Append([]string{o.Network, string(o.State), o.Duration.Round(time.Second).String(), detail}); err != nil {
			return err
		}
	}

	return table.Render()
}
