package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetSourceRecord mirrors the required input columns.
type parquetSourceRecord struct {
	CompanyID         string  `parquet:"name=Company_ID, type=BYTE_ARRAY, convertedtype=UTF8"`
	Industry          string  `parquet:"name=Industry, type=BYTE_ARRAY, convertedtype=UTF8"`
	Country           string  `parquet:"name=Country, type=BYTE_ARRAY, convertedtype=UTF8"`
	CompanySize       string  `parquet:"name=Company_Size, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalRevenue      float64 `parquet:"name=Total_Revenue, type=DOUBLE"`
	FinancialExpenses float64 `parquet:"name=Financial_Expenses, type=DOUBLE"`
	Equity            float64 `parquet:"name=Equity, type=DOUBLE"`
	CurrentRatio      float64 `parquet:"name=Current_Ratio, type=DOUBLE"`
	DebtToEquity      float64 `parquet:"name=Debt_to_Equity_Ratio, type=DOUBLE"`
}

// parquetExportRecord adds the derived columns.
type parquetExportRecord struct {
	CompanyID            string  `parquet:"name=Company_ID, type=BYTE_ARRAY, convertedtype=UTF8"`
	Industry             string  `parquet:"name=Industry, type=BYTE_ARRAY, convertedtype=UTF8"`
	Country              string  `parquet:"name=Country, type=BYTE_ARRAY, convertedtype=UTF8"`
	CompanySize          string  `parquet:"name=Company_Size, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalRevenue         float64 `parquet:"name=Total_Revenue, type=DOUBLE"`
	FinancialExpenses    float64 `parquet:"name=Financial_Expenses, type=DOUBLE"`
	Equity               float64 `parquet:"name=Equity, type=DOUBLE"`
	CurrentRatio         float64 `parquet:"name=Current_Ratio, type=DOUBLE"`
	DebtToEquity         float64 `parquet:"name=Debt_to_Equity_Ratio, type=DOUBLE"`
	CoverageRatio        float64 `parquet:"name=Financial_Expenses_Coverage_Ratio, type=DOUBLE"`
	EquityMillions       float64 `parquet:"name=Equity_Millions, type=DOUBLE"`
	TotalRevenueMillions float64 `parquet:"name=Total_Revenue_Millions, type=DOUBLE"`
}

// memFile is an in-memory source.ParquetFile. Readers opened from it get
// their own cursor over the same bytes.
type memFile struct {
	data []byte
	r    *bytes.Reader
	w    *bytes.Buffer
}

func newMemReader(data []byte) *memFile { return &memFile{data: data, r: bytes.NewReader(data)} }
func newMemWriter() *memFile            { return &memFile{w: new(bytes.Buffer)} }

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error) {
	return newMemReader(m.data), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	if m.r == nil {
		return int64(m.w.Len()), nil
	}
	return m.r.Seek(offset, whence)
}

func (m *memFile) Read(b []byte) (int, error) {
	if m.r == nil {
		return 0, errors.New("read not supported on writer")
	}
	return m.r.Read(b)
}

func (m *memFile) Write(b []byte) (int, error) {
	if m.w == nil {
		return 0, errors.New("write not supported on reader")
	}
	return m.w.Write(b)
}

func (m *memFile) Close() error { return nil }

type parquetDecoder struct{}

func (parquetDecoder) CanDecode(name string) bool { return path.Ext(name) == ".parquet" }

func (parquetDecoder) Decode(r io.Reader) ([]Company, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read parquet payload: %w", err)
	}
	if err := checkParquetSchema(data); err != nil {
		return nil, err
	}
	pr, err := reader.NewParquetReader(newMemReader(data), new(parquetSourceRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer pr.ReadStop()
	n := int(pr.GetNumRows())
	rows := make([]parquetSourceRecord, n)
	if n > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	out := make([]Company, 0, n)
	seen := make(map[string]int, n)
	for i, p := range rows {
		c := Company{
			ID: strings.TrimSpace(p.CompanyID), Industry: strings.TrimSpace(p.Industry),
			Country: strings.TrimSpace(p.Country), Size: strings.TrimSpace(p.CompanySize),
			TotalRevenue: p.TotalRevenue, FinancialExpenses: p.FinancialExpenses, Equity: p.Equity,
			CurrentRatio: p.CurrentRatio, DebtToEquity: p.DebtToEquity,
		}
		if err := checkRecord(seen, c, i+1); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// checkParquetSchema validates the footer before any row is decoded.
func checkParquetSchema(data []byte) error {
	pr, err := reader.NewParquetReader(newMemReader(data), nil, 1)
	if err != nil {
		return fmt.Errorf("open parquet: %w", err)
	}
	defer pr.ReadStop()
	var names []string
	if pr.Footer != nil {
		for _, el := range pr.Footer.Schema {
			if el != nil && el.NumChildren == nil {
				names = append(names, el.Name)
			}
		}
	}
	_, err = headerIndex(names)
	return err
}

// WriteParquet writes records with derived columns as a single parquet file.
func WriteParquet(w io.Writer, records []Company) error {
	mem := newMemWriter()
	pw, err := writer.NewParquetWriter(mem, new(parquetExportRecord), 1)
	if err != nil {
		return fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, c := range records {
		rec := parquetExportRecord{
			CompanyID: c.ID, Industry: c.Industry, Country: c.Country, CompanySize: c.Size,
			TotalRevenue: c.TotalRevenue, FinancialExpenses: c.FinancialExpenses, Equity: c.Equity,
			CurrentRatio: c.CurrentRatio, DebtToEquity: c.DebtToEquity,
			CoverageRatio: c.CoverageRatio(), EquityMillions: c.EquityMillions(),
			TotalRevenueMillions: c.TotalRevenueMillions(),
		}
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("write parquet row %s: %w", c.ID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	_, err = w.Write(mem.w.Bytes())
	return err
}
