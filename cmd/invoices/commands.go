package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/draft"
	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
	"github.com/joseph-ayodele/jobsite-invoices/internal/render"
	"github.com/joseph-ayodele/jobsite-invoices/internal/utils"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "new",
			Usage:     "save a new invoice",
			ArgsUsage: " ",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "item", Aliases: []string{"i"}, Usage: "line item as name:qty:rate (repeatable)"},
				&cli.StringSliceFlag{Name: "photo", Usage: "photo reference (repeatable)"},
				&cli.StringFlag{Name: "signature", Usage: "signature reference"},
				&cli.StringFlag{Name: "intent", Value: string(constants.IntentSave), Usage: "save, email or sign"},
				&cli.Float64Flag{Name: "tax-rate", Usage: "tax rate percent (defaults to the saved setting)"},
			},
			Action: withApp(newInvoice),
		},
		{
			Name:  "list",
			Usage: "list invoices, newest first",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "status", Usage: "only invoices in this status"},
			},
			Action: withApp(listInvoices),
		},
		{
			Name:      "show",
			Usage:     "show one invoice",
			ArgsUsage: "ID",
			Action: withApp(func(c *cli.Context, a *app) error {
				inv, err := getInvoice(c, a)
				if err != nil {
					return err
				}
				printInvoice(c.App.Writer, inv)
				return nil
			}),
		},
		{
			Name:      "toggle",
			Usage:     "flip between Accepted and Not Accepted",
			ArgsUsage: "ID",
			Action: withApp(func(c *cli.Context, a *app) error {
				inv, err := getInvoice(c, a)
				if err != nil {
					return err
				}
				changed, err := a.invoices.ToggleAcceptance(c.Context, inv)
				if !changed {
					fmt.Fprintf(c.App.Writer, "invoice %s is paid; acceptance unchanged\n", inv.ID)
					return nil
				}
				fmt.Fprintf(c.App.Writer, "invoice %s is now %s\n", inv.ID, inv.Status())
				return err
			}),
		},
		{
			Name:      "paid",
			Usage:     "record payment (or clear it with --unset)",
			ArgsUsage: "ID",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "unset", Usage: "clear payment and restore the previous status"},
			},
			Action: withApp(func(c *cli.Context, a *app) error {
				inv, err := getInvoice(c, a)
				if err != nil {
					return err
				}
				_, err = a.invoices.SetPaid(c.Context, inv, !c.Bool("unset"))
				fmt.Fprintf(c.App.Writer, "invoice %s is now %s (paid: %t)\n", inv.ID, inv.Status(), inv.Paid())
				return err
			}),
		},
		{
			Name:      "delete",
			Usage:     "delete an invoice",
			ArgsUsage: "ID",
			Action: withApp(func(c *cli.Context, a *app) error {
				id, err := requireID(c)
				if err != nil {
					return err
				}
				if err := a.invoices.Delete(c.Context, id); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
				return nil
			}),
		},
		{
			Name:  "sign",
			Usage: "attach a signature to the newest invoice (or --id)",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "ref", Required: true, Usage: "signature reference"},
				&cli.StringFlag{Name: "id", Usage: "sign this invoice instead of the newest"},
			},
			Action: withApp(func(c *cli.Context, a *app) error {
				var (
					inv *entity.Invoice
					err error
				)
				if id := c.String("id"); id != "" {
					inv, err = a.invoices.AttachSignatureByID(c.Context, id, c.String("ref"))
				} else {
					inv, err = a.invoices.AttachSignature(c.Context, c.String("ref"))
				}
				if err != nil {
					return err
				}
				if inv == nil {
					fmt.Fprintln(c.App.Writer, "no invoice to sign")
					return nil
				}
				fmt.Fprintf(c.App.Writer, "signed %s\n", inv.ID)
				return nil
			}),
		},
		{
			Name:      "print",
			Usage:     "render an invoice to a PDF or HTML file",
			ArgsUsage: "ID",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "format", Value: render.FormatPDF, Usage: "pdf or html"},
				&cli.StringFlag{Name: "out", Value: ".", Usage: "output directory"},
			},
			Action: withApp(func(c *cli.Context, a *app) error {
				inv, err := getInvoice(c, a)
				if err != nil {
					return err
				}
				doc, err := a.renderer(c.String("out")).Render(c.Context, inv, c.String("format"))
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, doc.Path)
				return nil
			}),
		},
		{
			Name:  "export",
			Usage: "export invoices to an XLSX workbook",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "out", Value: "invoices.xlsx", Usage: "output file"},
				&cli.StringFlag{Name: "status", Usage: "only invoices in this status"},
			},
			Action: withApp(func(c *cli.Context, a *app) error {
				var status *constants.Status
				if raw := c.String("status"); raw != "" {
					s, err := parseStatus(raw)
					if err != nil {
						return err
					}
					status = &s
				}
				data, err := a.exporter.ExportInvoicesXLSX(c.Context, status)
				if err != nil {
					return err
				}
				if err := os.WriteFile(c.String("out"), data, 0o644); err != nil {
					return errors.Wrapf(err, "write %s", c.String("out"))
				}
				fmt.Fprintln(c.App.Writer, c.String("out"))
				return nil
			}),
		},
		{
			Name:  "settings",
			Usage: "show or change the default tax rate",
			Subcommands: []*cli.Command{
				{
					Name: "show",
					Action: withApp(func(c *cli.Context, a *app) error {
						fmt.Fprintf(c.App.Writer, "tax rate: %s\n", utils.FormatPercent(a.invoices.TaxRate(c.Context)))
						return nil
					}),
				},
				{
					Name:      "set",
					ArgsUsage: "RATE",
					Action: withApp(func(c *cli.Context, a *app) error {
						raw := c.Args().First()
						v := common.NewValidator().Field("taxRate", raw, common.Required, common.Number, common.Between(0, 100))
						if err := v.Error(); err != nil {
							return err
						}
						rate, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
						if err := a.invoices.SaveTaxRate(c.Context, rate); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "tax rate: %s\n", utils.FormatPercent(rate))
						return nil
					}),
				},
				{
					Name: "reset",
					Action: withApp(func(c *cli.Context, a *app) error {
						if err := a.invoices.ResetSettings(c.Context); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "tax rate: %s\n", utils.FormatPercent(a.cfg.Invoice.DefaultTaxRate))
						return nil
					}),
				},
			},
		},
		{
			Name:  "health",
			Usage: "check the configured store",
			Action: withApp(func(c *cli.Context, a *app) error {
				if err := a.healthCheck(c.Context); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "store %s: OK\n", a.cfg.Store.Driver)
				return nil
			}),
		},
	}
}

func newInvoice(c *cli.Context, a *app) error {
	buf := draft.New()
	for _, raw := range c.StringSlice("item") {
		in, err := parseItem(raw)
		if err != nil {
			return err
		}
		if _, err := buf.AddItem(in); err != nil {
			return err
		}
	}
	for _, ref := range c.StringSlice("photo") {
		buf.AddPhoto(ref)
	}
	buf.SetSignature(c.String("signature"))

	rate := a.invoices.TaxRate(c.Context)
	if c.IsSet("tax-rate") {
		rate = c.Float64("tax-rate")
	}

	inv, err := a.invoices.Create(c.Context, buf, rate, constants.Intent(c.String("intent")))
	if inv != nil {
		printInvoice(c.App.Writer, inv)
	}
	return err
}

func listInvoices(c *cli.Context, a *app) error {
	var (
		list []*entity.Invoice
		err  error
	)
	if raw := c.String("status"); raw != "" {
		status, perr := parseStatus(raw)
		if perr != nil {
			return perr
		}
		list, err = a.invoices.ListByStatus(c.Context, status)
	} else {
		list, err = a.invoices.List(c.Context)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tSTATUS\tPAID\tTOTAL")
	for _, inv := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", inv.ID, inv.CreatedAt, inv.Status(), inv.Paid(), utils.FormatMoney(inv.Total))
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

// parseItem splits "name:qty:rate". The name may itself contain colons.
func parseItem(raw string) (draft.ItemInput, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return draft.ItemInput{}, common.NewAppError("INVALID_INPUT", fmt.Sprintf("item %q must be name:qty:rate", raw), common.ErrInvalidInput)
	}
	n := len(parts)
	return draft.ItemInput{
		Name: strings.Join(parts[:n-2], ":"),
		Qty:  parts[n-2],
		Rate: parts[n-1],
	}, nil
}

func parseStatus(raw string) (constants.Status, error) {
	s, ok := constants.ParseStatus(raw)
	if !ok {
		return "", common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown status %q (want one of %s)", raw, strings.Join(constants.Statuses(), ", ")), common.ErrInvalidInput)
	}
	return s, nil
}

func requireID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", common.NewAppError("INVALID_INPUT", "invoice id is required", common.ErrInvalidInput)
	}
	return id, nil
}

func getInvoice(c *cli.Context, a *app) (*entity.Invoice, error) {
	id, err := requireID(c)
	if err != nil {
		return nil, err
	}
	return a.invoices.Get(c.Context, id)
}

func printInvoice(w io.Writer, inv *entity.Invoice) {
	fmt.Fprintf(w, "Invoice #%s\n", inv.ID)
	fmt.Fprintf(w, "Date:     %s\n", inv.CreatedAt)
	fmt.Fprintf(w, "Status:   %s\n", inv.Status())
	if inv.Paid() {
		prev, _ := inv.PreviousStatus()
		fmt.Fprintf(w, "Paid:     yes (was %s)\n", prev)
	}
	fmt.Fprintf(w, "Tax Rate: %s\n", utils.FormatPercent(inv.TaxRate))
	for _, item := range inv.Items {
		fmt.Fprintf(w, "  %s\n", utils.LineSummary(item))
	}
	fmt.Fprintf(w, "Subtotal: %s\n", utils.FormatMoney(inv.Subtotal))
	fmt.Fprintf(w, "Tax:      %s\n", utils.FormatMoney(inv.Tax))
	fmt.Fprintf(w, "Total:    %s\n", utils.FormatMoney(inv.Total))
	if len(inv.Photos) > 0 {
		fmt.Fprintf(w, "Photos:   %d\n", len(inv.Photos))
	}
	if inv.Signature != nil {
		fmt.Fprintln(w, "Signed:   yes")
	}
}
