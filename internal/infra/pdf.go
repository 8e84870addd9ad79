package infra

// pdf.go renders the customer-facing invoice for a completed sale with
// go-pdf/fpdf: store header, invoice number and timestamp, customer/doctor
// block when present, item table, total and payment method.

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"pharmapos/internal/model"
)

const maxItemNameLen = 28

// WriteInvoicePDF writes an A6 receipt for sale to w. store may be nil.
func WriteInvoicePDF(w io.Writer, sale *model.Sale, store *model.Store) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 105, Ht: 148},
	})
	pdf.SetMargins(6, 6, 6)
	pdf.SetAutoPageBreak(true, 8)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 12

	// Header
	title := "Pharmacy Invoice"
	if store != nil {
		title = store.Name
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(title), "", 1, "C", false, 0, "")
	if store != nil {
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(contentW, 4, tr(store.Address), "", 1, "C", false, 0, "")
		pdf.CellFormat(contentW, 4, tr("Ph: "+store.Phone+"  Lic: "+store.LicenseNo), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Invoice "+sale.InvoiceNo, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, sale.CreatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")

	if line := partyLine("Customer", sale.CustomerName, sale.CustomerMobile); line != "" {
		pdf.CellFormat(contentW, 4, tr(line), "", 1, "L", false, 0, "")
	}
	if sale.CustomerAddress != nil && *sale.CustomerAddress != "" {
		pdf.CellFormat(contentW, 4, tr(*sale.CustomerAddress), "", 1, "L", false, 0, "")
	}
	if line := partyLine("Doctor", sale.DoctorName, sale.DoctorMobile); line != "" {
		pdf.CellFormat(contentW, 4, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(1)

	col1 := contentW * 0.46
	col2 := contentW * 0.12
	col3 := contentW * 0.20
	col4 := contentW * 0.22

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 5, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range sale.Items {
		name := "Item"
		if item.Name != nil {
			name = *item.Name
		}
		if r := []rune(name); len(r) > maxItemNameLen {
			name = string(r[:maxItemNameLen-3]) + "..."
		}
		pdf.CellFormat(col1, 5, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, item.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, item.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(1)
	pdf.Line(6, pdf.GetY(), pageW-6, pdf.GetY())
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2+col3, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(col4, 6, sale.NetAmount.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Paid by "+sale.PaymentMethod, "", 1, "L", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Get well soon!", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render invoice %s: %w", sale.InvoiceNo, err)
	}
	return nil
}

func partyLine(label string, name, mobile *string) string {
	var n, m string
	if name != nil {
		n = *name
	}
	if mobile != nil {
		m = *mobile
	}
	switch {
	case n != "" && m != "":
		return fmt.Sprintf("%s: %s (%s)", label, n, m)
	case n != "":
		return label + ": " + n
	case m != "":
		return label + ": " + m
	}
	return ""
}
