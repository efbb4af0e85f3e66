package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/contract"
)

// LedgerOptions holds flags for the ledger command.
type LedgerOptions struct {
	*RootOptions
	Field string
	Key   string
}

// LedgerView is the public state of an instance at its head.
type LedgerView struct {
	Address string         `json:"address"`
	Seq     int64          `json:"seq"`
	Head    string         `json:"head"`
	Fields  map[string]any `json:"fields"`
}

// LookupView is a single map entry.
type LookupView struct {
	Field  string `json:"field"`
	Key    any    `json:"key"`
	Member bool   `json:"member"`
	Value  any    `json:"value"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show the public ledger of the configured instance",
		Long: `Show the public ledger of the configured instance at its latest committed
call. Cell fields print their value; map fields print their entries as
[key, value] pairs.

With --field and --key, look up a single map entry instead.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Field, "field", "", "map field to look up")
	cmd.Flags().StringVar(&opts.Key, "key", "", "key to look up, in native form")
	cmd.MarkFlagsRequiredTogether("field", "key")

	return cmd
}

func runLedger(opts *LedgerOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	h, err := openHost(opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer h.Close()

	eng, err := h.Engine(cmd.Context())
	if err != nil {
		return commandError(f, ErrCodeLoadFailed, "opening instance", err)
	}

	if opts.Field != "" {
		return lookupEntry(f, opts, eng.Contract(), eng.Ledger())
	}

	fields, err := eng.Ledger().Native()
	if err != nil {
		return commandError(f, ErrCodeGeneric, "reading ledger", err)
	}
	head, err := eng.Head()
	if err != nil {
		return commandError(f, ErrCodeGeneric, "reading state root", err)
	}
	view := LedgerView{Address: h.Address(), Seq: eng.Seq(), Head: head, Fields: fields}

	return f.Success(view, func(w io.Writer) {
		fmt.Fprintf(w, "%s at seq %d\n", view.Address, view.Seq)
		fmt.Fprintf(w, "head %s\n\n", view.Head)
		names := make([]string, 0, len(view.Fields))
		for name := range view.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			pairs, ok := view.Fields[name].([]any)
			if !ok {
				fmt.Fprintf(w, "%s = %v\n", name, view.Fields[name])
				continue
			}
			fmt.Fprintf(w, "%s (%d entries)\n", name, len(pairs))
			for _, p := range pairs {
				kv := p.([]any)
				fmt.Fprintf(w, "  %v => %v\n", kv[0], kv[1])
			}
		}
	})
}

// lookupEntry looks up a single key of a map field. An absent key is not an
// error here; it reports member=false.
func lookupEntry(f *OutputFormatter, opts *LedgerOptions, c *contract.Contract, l *contract.Ledger) error {
	field, ok := c.FieldByName(opts.Field)
	if !ok || !field.IsMap() {
		return commandError(f, ErrCodeNotFound, fmt.Sprintf("no map field %q", opts.Field), nil)
	}
	key, err := codec.FromNative(field.Type.Key, opts.Key)
	if err != nil {
		return commandError(f, ErrCodeInvalid, "invalid --key", err)
	}

	view := LookupView{Field: opts.Field, Key: codec.ToNative(key)}
	view.Member, err = l.Member(opts.Field, key)
	if err != nil {
		return commandError(f, ErrCodeGeneric, "member", err)
	}
	if view.Member {
		v, err := l.Lookup(opts.Field, key)
		if err != nil {
			return commandError(f, ErrCodeGeneric, "lookup", err)
		}
		view.Value = codec.ToNative(v)
	}

	return f.Success(view, func(w io.Writer) {
		if !view.Member {
			fmt.Fprintf(w, "%s[%v] absent\n", view.Field, view.Key)
			return
		}
		fmt.Fprintf(w, "%s[%v] = %v\n", view.Field, view.Key, view.Value)
	})
}
