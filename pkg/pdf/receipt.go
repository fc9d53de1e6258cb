package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// ReceiptData carries everything printed on a donation receipt.
type ReceiptData struct {
	ReceiptNo       string
	DonationName    string
	BusinessName    string
	BeneficiaryName string
	Quantity        decimal.Decimal
	Unit            string
	UnitPrice       *decimal.Decimal
	TotalAmount     *decimal.Decimal
	ReceivedAt      *time.Time
	IssuedAt        time.Time
}

// RenderReceipt produces the receipt artifact as PDF bytes.
func RenderReceipt(data ReceiptData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, "Donation Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Receipt No: %s", data.ReceiptNo), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Issued: %s", data.IssuedAt.Format("02 Jan 2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Parties", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Donor: %s", data.BusinessName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Recipient: %s", data.BeneficiaryName), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Goods Received", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Item: %s", data.DonationName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Quantity: %s %s", data.Quantity.String(), data.Unit), "", 1, "L", false, 0, "")
	if data.ReceivedAt != nil {
		pdf.CellFormat(0, 8, fmt.Sprintf("Received: %s", data.ReceivedAt.Format("02 Jan 2006")), "", 1, "L", false, 0, "")
	}
	if data.UnitPrice != nil {
		pdf.CellFormat(0, 8, fmt.Sprintf("Unit price: %s", data.UnitPrice.StringFixed(2)), "", 1, "L", false, 0, "")
	}
	if data.TotalAmount != nil {
		pdf.CellFormat(0, 8, fmt.Sprintf("Appraised value: %s", data.TotalAmount.StringFixed(2)), "", 1, "L", false, 0, "")
	}

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 10, "This receipt certifies that the goods above were transferred to the recipient organization.", "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
