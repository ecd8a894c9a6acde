package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bhis/bhis/internal/domain/riskassessment"
	"github.com/bhis/bhis/internal/platform/document"
	"github.com/bhis/bhis/internal/platform/export"
)

func addFormFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("form", "f", "", "Risk-assessment form as JSON (\"-\" for stdin)")
	cmd.Flags().String("patient", "", "Start from the server's pre-filled form for this patient id")
}

// loadForm reads --form, or asks the server to pre-fill one from --patient.
// When both are set the file wins and the registry only fills blanks.
func loadForm(ctx context.Context, a *app, cmd *cobra.Command) (riskassessment.Form, error) {
	var f riskassessment.Form
	path, _ := cmd.Flags().GetString("form")
	rawPatient, _ := cmd.Flags().GetString("patient")
	if path == "" && rawPatient == "" {
		return f, errors.New("either --form or --patient is required")
	}

	if path != "" {
		var r io.Reader
		if path == "-" {
			r = cmd.InOrStdin()
		} else {
			file, err := os.Open(path)
			if err != nil {
				return f, fmt.Errorf("open form: %w", err)
			}
			defer file.Close()
			r = file
		}
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return f, fmt.Errorf("decode form: %w", err)
		}
	}

	if rawPatient != "" {
		id, err := uuid.Parse(rawPatient)
		if err != nil {
			return f, fmt.Errorf("invalid patient id: %w", err)
		}
		c, err := a.authed(ctx)
		if err != nil {
			return f, err
		}
		pre, err := c.Prefill(ctx, id)
		if err != nil {
			return f, err
		}
		f = riskassessment.MergePrefill(f, *pre)
	}
	return f, nil
}

func previewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show how a form will print",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := loadForm(ctx, a, cmd)
			if err != nil {
				return err
			}
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			doc, err := c.Preview(ctx, f)
			if err != nil {
				return err
			}
			printDocument(cmd.OutOrStdout(), *doc)
			return nil
		},
	}
	addFormFlags(cmd)
	return cmd
}

func printDocument(out io.Writer, doc document.Document) {
	fmt.Fprintf(out, "%s\n", doc.Title)
	if doc.Subject != "" {
		fmt.Fprintf(out, "%s\n", doc.Subject)
	}
	for _, s := range doc.Sections {
		if s.PageBreakBefore {
			fmt.Fprintln(out, "---- page break ----")
		}
		fmt.Fprintf(out, "\n== %s ==\n", s.Title)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, fld := range s.Fields {
			fmt.Fprintf(w, "  %s\t%s\n", fld.Label, fld.Value)
		}
		w.Flush()
	}
}

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a form as PDF",
		Long: "Renders the form to PDF on this machine. With --id the PDF of a saved\n" +
			"assessment is downloaded from the server instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			outDir, _ := cmd.Flags().GetString("out")
			docType, _ := cmd.Flags().GetString("type")
			fontPath, _ := cmd.Flags().GetString("font")

			var name string
			var data []byte
			if rawID, _ := cmd.Flags().GetString("id"); rawID != "" {
				id, err := uuid.Parse(rawID)
				if err != nil {
					return fmt.Errorf("invalid assessment id: %w", err)
				}
				c, err := a.authed(ctx)
				if err != nil {
					return err
				}
				d, err := c.ExportSaved(ctx, id)
				if err != nil {
					return err
				}
				name, data = d.Name, d.Data
			} else {
				f, err := loadForm(ctx, a, cmd)
				if err != nil {
					return err
				}
				art, err := exportLocal(ctx, f, docType, fontPath)
				if err != nil {
					return err
				}
				name, data = art.Name, art.Data
			}
			if name == "" {
				name = export.FileName(docType, "")
			}

			path, err := writeAtomic(outDir, filepath.Base(name), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, len(data))
			return nil
		},
	}
	addFormFlags(cmd)
	cmd.Flags().String("id", "", "Download a saved assessment by id")
	cmd.Flags().StringP("out", "o", ".", "Directory to write the PDF to")
	cmd.Flags().String("type", riskassessment.DefaultDocumentType, "Document type used in the file name")
	cmd.Flags().String("font", "", "TrueType font with check-box glyphs")
	return cmd
}

func exportLocal(ctx context.Context, f riskassessment.Form, docType, fontPath string) (*export.Artifact, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	opts := riskassessment.DefaultRenderOptions()
	opts.DocumentType = docType
	doc := riskassessment.Render(f, opts)
	exp := export.NewExporter(export.Options{PDF: export.PDFOptions{FontPath: fontPath, Creator: "bhis"}})
	return exp.Export(ctx, doc)
}

// writeAtomic never leaves a partial file at the final path.
func writeAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close pdf: %w", err)
	}
	final := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("save pdf: %w", err)
	}
	return final, nil
}
