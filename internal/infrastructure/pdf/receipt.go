// Package pdf genera el comprobante de un movimiento de inventario.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Organización          │  Tipo + N° + Fecha          │
//	│  CONTACTO: Nombre + Teléfono                                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Botella | Producto | Lote | Precio                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Total / Pagado / Saldo + estado                    │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ inventory.ReceiptRenderer = (*ReceiptGenerator)(nil)

// ReceiptGenerator comprobantes PDF con Maroto v2.
type ReceiptGenerator struct {
	orgName string
	printer *message.Printer
}

// NewReceiptGenerator lang define el formato de los montos ("en-US" -> $1,234.50).
func NewReceiptGenerator(orgName, lang string) *ReceiptGenerator {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &ReceiptGenerator{orgName: orgName, printer: message.NewPrinter(tag)}
}

// RenderReceipt genera el PDF y devuelve sus bytes.
func (g *ReceiptGenerator) RenderReceipt(_ context.Context, r *inventory.Receipt) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante "+shortID(r.Movement.ID), true).
		WithAuthor(g.orgName, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(g.headerRow(r.Movement))
	m.AddRows(contactRow(r.Contact, r.Movement))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	m.AddRows(g.lineRows(r.Lines)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalsRow(r))
	if r.Movement.Notes != "" {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("Notas: "+r.Movement.Notes, props.Text{Size: 8, Top: 2, Color: colorGray}),
		)))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *ReceiptGenerator) headerRow(mv *entity.Movement) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.orgName, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
		),
		col.New(5).Add(
			text.New(typeLabel(mv.Type), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("N° "+shortID(mv.ID), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New("Fecha: "+mv.MovementDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func contactRow(c *entity.Contact, mv *entity.Movement) core.Row {
	name, detail := "-", ""
	if c != nil {
		name = c.Name
		detail = "Tel: " + nonEmpty(c.Phone, "-")
	}
	if mv.Type == entity.MovementAdjustment {
		name, detail = "Baja de inventario", "Estado: "+string(mv.WriteOffStatus)
	}
	return row.New(14).Add(col.New(12).Add(
		text.New("CONTACTO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		text.New(detail, props.Text{Size: 8, Top: 11, Color: colorGray}),
	))
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Botella", 3, align.Left),
		h("Producto", 4, align.Left),
		h("Lote", 2, align.Left),
		h("Precio", 3, align.Right),
	)
}

func (g *ReceiptGenerator) lineRows(lines []inventory.ReceiptLine) []core.Row {
	rows := make([]core.Row, 0, len(lines))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, l := range lines {
		rows = append(rows, row.New(7).Add(
			cell(l.BottleUID, 3, align.Left),
			cell(nonEmpty(l.PeptideName, "-"), 4, align.Left),
			cell(nonEmpty(l.LotNumber, "-"), 2, align.Left),
			cell(g.money(l.Price), 3, align.Right),
		))
	}
	return rows
}

func (g *ReceiptGenerator) totalsRow(r *inventory.Receipt) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	status := strings.ToUpper(r.Movement.SettlementStatus())
	return row.New(24).Add(
		col.New(6),
		col.New(3).Add(
			label("Total:"),
			text.New("Pagado:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("Saldo:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 2, Top: 10, Color: colorPrimary}),
			text.New("Estado:", props.Text{Size: 8, Align: align.Right, Right: 2, Top: 16, Color: colorGray}),
		),
		col.New(3).Add(
			value(g.money(r.Total), 0),
			value(g.money(r.Movement.AmountPaid), 5),
			text.New(g.money(r.Balance), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Right: 1, Top: 10, Color: colorPrimary}),
			text.New(status, props.Text{Size: 8, Align: align.Right, Right: 1, Top: 16, Color: colorGray}),
		),
	)
}

// money formatea con separadores de miles del idioma configurado.
func (g *ReceiptGenerator) money(d decimal.Decimal) string {
	return g.printer.Sprintf("$%.2f", d.InexactFloat64())
}

func typeLabel(t entity.MovementType) string {
	switch t {
	case entity.MovementSale:
		return "COMPROBANTE DE VENTA"
	case entity.MovementGiveaway:
		return "ENTREGA SIN COSTO"
	case entity.MovementAdjustment:
		return "AJUSTE DE INVENTARIO"
	}
	return "MOVIMIENTO"
}

// shortID primeros 8 caracteres del UUID, como se muestra al cliente.
func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
