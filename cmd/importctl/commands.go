package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"recipe-importer/internal/app"
	"recipe-importer/internal/core/parser"
	"recipe-importer/internal/core/session"
	"recipe-importer/internal/core/source"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Import recipes from URLs, social posts, pasted text or photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !verbose {
				return nil
			}
			common.InitConsoleLogger("debug", zapcore.AddSync(cmd.ErrOrStderr()))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write debug logs")

	root.AddCommand(newClassifyCmd(), newParseCmd(), newImportCmd())
	return root
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <input>",
		Short: "Show how an input would be classified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), source.NewClassifier().Classify(args[0]))
		},
	}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Structure recipe text with the local engine (reads stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			res := parser.New().Parse(string(data))
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"draft":           res.Draft,
				"confidence":      res.Confidence,
				"warnings":        res.Warnings,
				"discarded_lines": res.DiscardedLines,
			})
		},
	}
}

type importFlags struct {
	text     string
	url      string
	image    string
	kind     string
	language string
	local    bool
	save     bool
}

func newImportCmd() *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run a full import session and print the resulting snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if f.local {
				cfg.Session.TextStrategy = string(session.TextStrategyLocal)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cfg.Session.RunTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Session.RunTimeout)
				defer cancel()
			}

			a, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			s := session.New(a.Deps)
			// 失敗時仍輸出快照，錯誤資訊在 error 欄位
			snap, err := s.StartImport(ctx, in)
			if err == nil && f.save {
				if _, err := s.Save(ctx, nil); err != nil {
					return err
				}
				snap = s.Snapshot()
			}

			if perr := printJSON(cmd.OutOrStdout(), snap); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&f.text, "text", "", "pasted recipe text")
	cmd.Flags().StringVar(&f.url, "url", "", "recipe page or social post URL")
	cmd.Flags().StringVar(&f.image, "image", "", "path to a photo of the recipe")
	cmd.Flags().StringVar(&f.kind, "kind", "", "declared kind: url, social, text or image")
	cmd.Flags().StringVar(&f.language, "language", "", "language hint for OCR and structuring")
	cmd.Flags().BoolVar(&f.local, "local", false, "structure pasted text with the local engine")
	cmd.Flags().BoolVar(&f.save, "save", false, "save the draft when the import succeeds")
	cmd.MarkFlagsMutuallyExclusive("text", "url", "image")
	cmd.MarkFlagsOneRequired("text", "url", "image")
	return cmd
}

func (f importFlags) input() (session.RawImportInput, error) {
	in := session.RawImportInput{
		Kind:             source.Kind(f.kind),
		DeclaredLanguage: f.language,
	}
	switch {
	case f.image != "":
		data, err := os.ReadFile(f.image)
		if err != nil {
			return in, fmt.Errorf("failed to read image: %w", err)
		}
		in.Kind = source.KindImage
		in.Image = data
	case f.url != "":
		in.Text = f.url
	default:
		in.Text = f.text
	}
	return in, session.ValidateInput(in)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
