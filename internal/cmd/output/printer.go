// Package output renders fetch results and watch batches for the apollo command.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/jmjoy/apollo-client"
	"github.com/mattn/go-isatty"
)

// Printer writes results in text or JSON form.
type Printer struct {
	w           io.Writer
	json        bool
	showSecrets bool
	now         func() time.Time

	header  *color.Color
	key     *color.Color
	failure *color.Color
	dim     *color.Color
}

// Config configures a Printer.
type Config struct {
	JSON        bool
	ShowSecrets bool

	// Color forces colored text output on or off. Nil enables color when the
	// writer is a terminal.
	Color *bool
}

// New creates a Printer writing to w.
func New(w io.Writer, cfg Config) *Printer {
	useColor := isTerminal(w)
	if cfg.Color != nil {
		useColor = *cfg.Color
	}

	p := &Printer{
		w:           w,
		json:        cfg.JSON,
		showSecrets: cfg.ShowSecrets,
		now:         time.Now,
		header:      color.New(color.FgCyan, color.Bold),
		key:         color.New(color.FgGreen),
		failure:     color.New(color.FgRed),
		dim:         color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.header, p.key, p.failure, p.dim} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// record is the JSON form of one namespace result or batch error.
type record struct {
	Time           string            `json:"time"`
	Namespace      string            `json:"namespace,omitempty"`
	ReleaseKey     string            `json:"releaseKey,omitempty"`
	Configurations map[string]string `json:"configurations,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// PrintBatch writes every result of b in namespace order, or its error.
func (p *Printer) PrintBatch(b apollo.Batch) error {
	if b.Err != nil {
		return p.printError("", b.Err)
	}
	return p.PrintResults(b.Results)
}

// PrintResults writes results in namespace order.
func (p *Printer) PrintResults(results map[string]apollo.Result) error {
	for _, ns := range slices.Sorted(maps.Keys(results)) {
		r := results[ns]
		if r.Err != nil {
			if err := p.printError(ns, r.Err); err != nil {
				return err
			}
			continue
		}
		if err := p.printConfig(ns, r); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) configurations(r apollo.Result) map[string]string {
	if p.showSecrets {
		return r.Config.Configurations
	}
	return apollo.Mask(r.Config.Configurations, nil)
}

func (p *Printer) printConfig(ns string, r apollo.Result) error {
	configs := p.configurations(r)
	ts := p.now().Format(time.RFC3339)

	if p.json {
		return p.writeJSON(record{Time: ts, Namespace: ns, ReleaseKey: r.Config.ReleaseKey, Configurations: configs})
	}

	if _, err := fmt.Fprintf(p.w, "%s %s %s\n",
		p.dim.Sprint(ts), p.header.Sprint(ns), p.dim.Sprintf("(release %s)", r.Config.ReleaseKey)); err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(configs)) {
		if _, err := fmt.Fprintf(p.w, "  %s = %s\n", p.key.Sprint(k), configs[k]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printError(ns string, err error) error {
	ts := p.now().Format(time.RFC3339)
	if p.json {
		return p.writeJSON(record{Time: ts, Namespace: ns, Error: err.Error()})
	}

	label := "watch"
	if ns != "" {
		label = ns
	}
	_, werr := fmt.Fprintf(p.w, "%s %s %s\n", p.dim.Sprint(ts), p.failure.Sprint(label), p.failure.Sprint(err))
	return werr
}

func (p *Printer) writeJSON(r record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintf(p.w, "%s\n", data)
	return err
}
