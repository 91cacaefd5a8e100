package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Receipt is the data printed on a payment receipt.
type Receipt struct {
	AppointmentID   string
	PatientName     string
	PatientEmail    string
	DoctorName      string
	Speciality      string
	SlotDate        string
	SlotTime        string
	Amount          decimal.Decimal
	Currency        string
	PaidAt          time.Time
	PaymentIntentID string
}

type ReceiptRenderer interface {
	Render(receipt Receipt) ([]byte, error)
}

type pdfReceiptRenderer struct {
	clinicName string
}

func NewPDFReceiptRenderer(clinicName string) ReceiptRenderer {
	return &pdfReceiptRenderer{clinicName: clinicName}
}

func (r *pdfReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(r.clinicName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, "Payment receipt", "B", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Appointment", receipt.AppointmentID},
		{"Patient", receipt.PatientName},
		{"Email", receipt.PatientEmail},
		{"Doctor", receipt.DoctorName},
		{"Speciality", receipt.Speciality},
		{"Slot", receipt.SlotDate + " " + receipt.SlotTime},
		{"Paid at", receipt.PaidAt.UTC().Format("02 Jan 2006 15:04 MST")},
		{"Payment reference", receipt.PaymentIntentID},
	}
	for i, row := range rows {
		if row[1] == "" {
			continue
		}
		fill := i%2 == 0
		pdf.SetFillColor(242, 242, 242)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 9, row[0], "1", 0, "L", fill, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 9, tr(row[1]), "1", 1, "L", fill, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 10, fmt.Sprintf("Total paid: %s %s", receipt.Amount.StringFixed(2), strings.ToUpper(receipt.Currency)), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "This receipt was generated electronically and needs no signature.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", receipt.AppointmentID, err)
	}
	return buf.Bytes(), nil
}
