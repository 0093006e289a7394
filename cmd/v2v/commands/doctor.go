package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/cli"
	"github.com/haivivi/v2v/pkg/speech"
)

// checkResult is one line of the doctor report.
type checkResult struct {
	Name   string `json:"name" yaml:"name"`
	OK     bool   `json:"ok" yaml:"ok"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// doctorReport is the output of "doctor".
type doctorReport struct {
	Context string        `json:"context" yaml:"context"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Locale  string        `json:"locale" yaml:"locale"`
	Checks  []checkResult `json:"checks" yaml:"checks"`
}

func (r doctorReport) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		rows = append(rows, []string{c.Name, status, c.Detail})
	}
	return []string{"CHECK", "STATUS", "DETAIL"}, rows
}

func (r doctorReport) healthy() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backend and speech capabilities",
	Long: `Check that the chat backend is reachable and the configured speech
backends are available on this host. Exits non-zero when a check fails.

Examples:
  v2v doctor
  v2v doctor -o table
  v2v doctor --speaker openai`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings()
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)
		report := doctorReport{
			Context: displayContext(s),
			BaseURL: s.BaseURL,
			Locale:  s.Locale,
		}

		backend := checkResult{Name: "backend", OK: true, Detail: s.BaseURL}
		if err := newClient(s).Health(ctx); err != nil {
			backend.OK = false
			backend.Detail = err.Error()
		}
		report.Checks = append(report.Checks, backend)

		caps, err := openCapabilities(s, make(chan string), nil, cmd.OutOrStdout())
		if err != nil {
			report.Checks = append(report.Checks, checkResult{Name: "speech", Detail: err.Error()})
		} else {
			report.Checks = append(report.Checks,
				capabilityCheck("recognizer", s.Recognizer, caps.Recognizer.Available()),
				capabilityCheck("speaker", s.Speaker, caps.Speaker.Available()),
			)
			if caps.cache != nil {
				entries, size, err := speech.NewAudioCache(caps.cache).Stats(ctx)
				c := checkResult{Name: "speech cache", OK: err == nil, Detail: s.CacheDir}
				if err != nil {
					c.Detail = err.Error()
				} else {
					c.Detail = fmt.Sprintf("%s (%d entries, %s)", s.CacheDir, entries, cli.FormatBytes(size))
				}
				report.Checks = append(report.Checks, c)
			}
			caps.Close()
		}

		if err := cli.Output(report, outputOptions(cmd)); err != nil {
			return err
		}
		if !report.healthy() {
			return fmt.Errorf("some checks failed")
		}
		return nil
	},
}

func capabilityCheck(kind, name string, available bool) checkResult {
	c := checkResult{Name: kind, OK: available, Detail: name}
	if !available {
		c.Detail = name + ": " + speech.ErrUnavailable.Error()
	}
	return c
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
