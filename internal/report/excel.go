package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/bmoreira/tesouraria/internal/ledger"
)

const (
	sheetTransactions = "Movimentações"
	sheetSummary      = "Resumo"
)

// WriteExcel renders the window's transactions and summary as an .xlsx
// workbook. One-way: nothing written here feeds back into the ledger.
func (s *Service) WriteExcel(ctx context.Context, w io.Writer, start, end time.Time, entityID *uuid.UUID) error {
	summary, err := s.Build(ctx, start, end, entityID)
	if err != nil {
		return err
	}

	posted := ledger.StatusPosted
	txs, err := s.transactions.List(ctx, ledger.ListFilter{
		Status:    &posted,
		StartDate: &summary.Start,
		EndDate:   &summary.End,
	})
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetTransactions)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	f.SetActiveSheet(index)

	headers := []string{"Data", "Descrição", "Módulo", "Tipo", "Valor (R$)", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetTransactions, cell, header)
	}

	for i, tx := range txs {
		row := i + 2
		f.SetCellValue(sheetTransactions, fmt.Sprintf("A%d", row), tx.Date.Format("02/01/2006"))
		f.SetCellValue(sheetTransactions, fmt.Sprintf("B%d", row), tx.Description)
		f.SetCellValue(sheetTransactions, fmt.Sprintf("C%d", row), string(tx.Module))
		f.SetCellValue(sheetTransactions, fmt.Sprintf("D%d", row), string(tx.Type))
		f.SetCellValue(sheetTransactions, fmt.Sprintf("E%d", row), centsToValue(tx.Amount))
		f.SetCellValue(sheetTransactions, fmt.Sprintf("F%d", row), string(tx.Status))
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	lines := []struct {
		label  string
		amount int64
	}{
		{"Entradas dinheiro", summary.CashIn},
		{"Saídas dinheiro", summary.CashOut},
		{"Entradas PIX", summary.PixIn},
		{"Saídas PIX", summary.PixOut},
		{"Entradas conta digital", summary.DigitalIn},
		{"Saídas conta digital", summary.DigitalOut},
		{"Entradas cofre", summary.SafeIn},
		{"Saídas cofre", summary.SafeOut},
		{"Consumo em estabelecimentos", summary.MerchantConsumption},
		{"Aportes em estabelecimentos", summary.MerchantTopUp},
		{"Total de entradas", summary.TotalIn},
		{"Total de saídas", summary.TotalOut},
	}

	f.SetCellValue(sheetSummary, "A1", fmt.Sprintf("Período: %s a %s",
		summary.Start.Format("02/01/2006"), summary.End.Format("02/01/2006")))

	for i, line := range lines {
		row := i + 3
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), line.label)
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), centsToValue(line.amount))
	}

	// Drop the default sheet excelize seeds the workbook with.
	f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}

func centsToValue(cents int64) float64 {
	return float64(cents) / 100.0
}
