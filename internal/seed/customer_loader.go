package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"comanda/pos/domain"
	"comanda/pos/internal/customers"
)

// CustomerAdder is the write side of the customer directory.
type CustomerAdder interface {
	Add(ctx context.Context, customer domain.Customer) customers.Result
}

// Report counts the rows of one import.
type Report struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

var columns = []string{
	"customer_name", "customer_phone", "document", "delivery_address",
	"zip_code", "district", "number", "city", "state",
}

// ImportCustomers reads a CSV whose header names customer columns and creates
// one customer per row. Rows without a name are skipped; a failed create is
// recorded and the import continues.
func ImportCustomers(ctx context.Context, r io.Reader, dir CustomerAdder) (Report, error) {
	var report Report
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return report, fmt.Errorf("read customer header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["customer_name"]; !ok {
		return report, errors.New("customer header has no customer_name column")
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read customer row %d: %v", line, err)
			report.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		values := make(map[string]string, len(columns))
		for _, col := range columns {
			if i, ok := index[col]; ok && i < len(record) {
				values[col] = strings.TrimSpace(record[i])
			}
		}
		if values["customer_name"] == "" {
			report.Skipped++
			continue
		}

		res := dir.Add(ctx, domain.Customer{
			CustomerName:    values["customer_name"],
			CustomerPhone:   values["customer_phone"],
			Document:        values["document"],
			DeliveryAddress: values["delivery_address"],
			ZipCode:         values["zip_code"],
			District:        values["district"],
			Number:          values["number"],
			City:            values["city"],
			State:           values["state"],
		})
		if !res.Success {
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %s", line, res.Error))
			continue
		}
		report.Imported++
	}

	log.Printf("imported %d customers (%d skipped, %d failed)", report.Imported, report.Skipped, len(report.Errors))
	return report, nil
}

// ImportCustomersFile is ImportCustomers over a file on disk.
func ImportCustomersFile(ctx context.Context, path string, dir CustomerAdder) (Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open customer file %s: %w", path, err)
	}
	defer file.Close()
	return ImportCustomers(ctx, file, dir)
}
