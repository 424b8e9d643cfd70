// Package export turns a finished rating session into tabular output.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/manash/imgrate/pkg/models"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Header is the column layout shared by every export format.
var Header = []string{"Image Path", "Image Name", "Q1", "Q2", "Q3", "Q4", "Q5"}

// Row is one exported image. Rating columns hold 1..5, or 0 when the
// question was left unanswered.
type Row struct {
	ImagePath string `parquet:"image_path"`
	ImageName string `parquet:"image_name"`
	Q1        int32  `parquet:"q1"`
	Q2        int32  `parquet:"q2"`
	Q3        int32  `parquet:"q3"`
	Q4        int32  `parquet:"q4"`
	Q5        int32  `parquet:"q5"`
}

func RowFromRating(ir models.ImageRating) Row {
	return Row{
		ImagePath: ir.ImagePath,
		ImageName: ir.ImageName,
		Q1:        int32(ir.Q1Rating.Value()),
		Q2:        int32(ir.Q2Rating.Value()),
		Q3:        int32(ir.Q3Rating.Value()),
		Q4:        int32(ir.Q4Rating.Value()),
		Q5:        int32(ir.Q5Rating.Value()),
	}
}

func RowsFromRatings(ratings []models.ImageRating) []Row {
	rows := make([]Row, 0, len(ratings))
	for _, ir := range ratings {
		rows = append(rows, RowFromRating(ir))
	}
	return rows
}

func (r Row) values() []int32 {
	return []int32{r.Q1, r.Q2, r.Q3, r.Q4, r.Q5}
}

type Writer interface {
	Format() string
	Extension() string
	Write(w io.Writer, rows []Row) error
}

func ValidFormats() []string {
	return []string{FormatCSV, FormatParquet}
}

func ForFormat(format string) (Writer, error) {
	switch format {
	case FormatCSV, "":
		return CSVWriter{}, nil
	case FormatParquet:
		return ParquetWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q: must be one of %v", format, ValidFormats())
	}
}

type CSVWriter struct{}

func (CSVWriter) Format() string    { return FormatCSV }
func (CSVWriter) Extension() string { return ".csv" }

func (CSVWriter) Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, 0, len(Header))
		record = append(record, row.ImagePath, row.ImageName)
		for _, v := range row.values() {
			record = append(record, ratingCell(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ratingCell(v int32) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(int(v))
}

type ParquetWriter struct{}

func (ParquetWriter) Format() string    { return FormatParquet }
func (ParquetWriter) Extension() string { return ".parquet" }

func (ParquetWriter) Write(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return pw.Close()
}
