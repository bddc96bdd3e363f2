package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vsinha/lotalloc/pkg/application/dto"
	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

const (
	OrderLinesFile  = "order_lines.csv"
	LotsFile        = "lots.csv"
	AllocationsFile = "allocations.csv"
)

// Scenario is a set of order lines and stock lots loaded from a directory
type Scenario struct {
	OrderLines []*entities.OrderLine
	Lots       []*entities.StockLot
}

// Loader handles loading allocation scenarios from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario loads order_lines.csv and lots.csv from dir, attaching the
// rows of allocations.csv to their lines when that file exists
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	lines, err := l.LoadOrderLines(filepath.Join(dir, OrderLinesFile))
	if err != nil {
		return nil, err
	}
	lots, err := l.LoadLots(filepath.Join(dir, LotsFile))
	if err != nil {
		return nil, err
	}

	allocations, err := l.LoadAllocations(filepath.Join(dir, AllocationsFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	byID := make(map[entities.OrderLineID]*entities.OrderLine, len(lines))
	for _, line := range lines {
		byID[line.ID] = line
	}
	for lineID, allocs := range allocations {
		line, ok := byID[lineID]
		if !ok {
			return nil, fmt.Errorf("allocations CSV references unknown order line %d", lineID)
		}
		line.Allocations = append(line.Allocations, allocs...)
	}

	return &Scenario{OrderLines: lines, Lots: lots}, nil
}

// LoadOrderLines loads order lines from a CSV file
func (l *Loader) LoadOrderLines(filename string) ([]*entities.OrderLine, error) {
	expectedHeader := []string{"id", "order_id", "product_id", "required_quantity", "unit"}
	records, err := readRecords(filename, "order lines", expectedHeader, true)
	if err != nil {
		return nil, err
	}

	var lines []*entities.OrderLine
	for i, record := range records {
		line, err := parseOrderLine(record)
		if err != nil {
			return nil, fmt.Errorf("order lines CSV row %d: %w", i+2, err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// LoadLots loads stock lots from a CSV file. available_quantity is the free
// stock left after the allocations in allocations.csv.
func (l *Loader) LoadLots(filename string) ([]*entities.StockLot, error) {
	expectedHeader := []string{"lot_id", "product_id", "lot_number", "available_quantity", "expiry_date", "warehouse"}
	records, err := readRecords(filename, "lots", expectedHeader, true)
	if err != nil {
		return nil, err
	}

	var lots []*entities.StockLot
	for i, record := range records {
		lot, err := parseStockLot(record)
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: %w", i+2, err)
		}
		lots = append(lots, lot)
	}

	return lots, nil
}

// LoadAllocations loads persisted allocations from a CSV file, grouped by order line
func (l *Loader) LoadAllocations(filename string) (map[entities.OrderLineID][]entities.Allocation, error) {
	expectedHeader := []string{"id", "order_line_id", "lot_id", "allocated_quantity", "allocation_type"}
	records, err := readRecords(filename, "allocations", expectedHeader, false)
	if err != nil {
		return nil, err
	}

	allocations := make(map[entities.OrderLineID][]entities.Allocation)
	for i, record := range records {
		lineID, alloc, err := parseAllocation(record)
		if err != nil {
			return nil, fmt.Errorf("allocations CSV row %d: %w", i+2, err)
		}
		allocations[lineID] = append(allocations[lineID], *alloc)
	}

	return allocations, nil
}

// readRecords returns the data rows of a CSV file after checking its header
func readRecords(filename, kind string, expectedHeader []string, requireRows bool) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(expectedHeader)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) == 0 || (requireRows && len(records) < 2) {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	return records[1:], nil
}

func validateHeader(header, expected []string) bool {
	if len(header) != len(expected) {
		return false
	}
	for i, col := range header {
		if strings.TrimSpace(strings.ToLower(col)) != expected[i] {
			return false
		}
	}
	return true
}

func parseOrderLine(record []string) (*entities.OrderLine, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %s", record[0])
	}
	orderID, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid order_id: %s", record[1])
	}
	productID, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid product_id: %s", record[2])
	}
	required, err := entities.ParseQuantity(record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid required_quantity: %s", record[3])
	}

	return entities.NewOrderLine(
		entities.OrderLineID(id),
		entities.OrderID(orderID),
		entities.ProductID(productID),
		required,
		record[4],
		nil,
	)
}

func parseStockLot(record []string) (*entities.StockLot, error) {
	lotID, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lot_id: %s", record[0])
	}
	productID, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil || productID <= 0 {
		return nil, fmt.Errorf("invalid product_id: %s", record[1])
	}
	available, err := entities.ParseQuantity(record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid available_quantity: %s", record[3])
	}
	payload := dto.CandidateLotPayload{
		LotID:             lotID,
		LotNumber:         record[2],
		AvailableQuantity: available,
		ExpiryDate:        record[4],
		Warehouse:         record[5],
	}
	lot, err := payload.ToEntity()
	if err != nil {
		return nil, err
	}
	return &entities.StockLot{ProductID: entities.ProductID(productID), CandidateLot: *lot}, nil
}

func parseAllocation(record []string) (entities.OrderLineID, *entities.Allocation, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("invalid id: %s", record[0])
	}
	lineID, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid order_line_id: %s", record[1])
	}
	lotID, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid lot_id: %s", record[2])
	}
	quantity, err := entities.ParseQuantity(record[3])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid allocated_quantity: %s", record[3])
	}
	allocationType, err := entities.ParseAllocationType(strings.ToLower(record[4]))
	if err != nil {
		return 0, nil, err
	}

	alloc, err := entities.NewAllocation(entities.AllocationID(id), entities.LotID(lotID), quantity, allocationType)
	if err != nil {
		return 0, nil, err
	}
	return entities.OrderLineID(lineID), alloc, nil
}
