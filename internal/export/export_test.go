package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manash/imgrate/pkg/models"
)

func sampleRatings() []models.ImageRating {
	b := models.NewImageRating("/imgs/b.png")
	b.SetAnswers(models.Answers{models.R2, models.R1, models.R3, models.R4, models.R5})
	a := models.NewImageRating("/imgs/a.png")
	a.SetAnswers(models.Answers{models.R5, models.R5, models.R5, models.R5, models.R5})
	return []models.ImageRating{b, a}
}

func TestRowsFromRatings(t *testing.T) {
	rows := RowsFromRatings(sampleRatings())
	require.Len(t, rows, 2)

	assert.Equal(t, Row{ImagePath: "/imgs/b.png", ImageName: "b", Q1: 2, Q2: 1, Q3: 3, Q4: 4, Q5: 5}, rows[0])
	assert.Equal(t, "a", rows[1].ImageName)
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVWriter{}.Write(&buf, RowsFromRatings(sampleRatings())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Image Path", "Image Name", "Q1", "Q2", "Q3", "Q4", "Q5"}, records[0])
	assert.Equal(t, []string{"/imgs/b.png", "b", "2", "1", "3", "4", "5"}, records[1])
	assert.Equal(t, []string{"/imgs/a.png", "a", "5", "5", "5", "5", "5"}, records[2])
}

func TestCSVWriter_UnansweredIsEmpty(t *testing.T) {
	ir := models.NewImageRating("/imgs/c.png")
	ir.SetAnswers(models.Answers{models.R1})

	var buf bytes.Buffer
	require.NoError(t, CSVWriter{}.Write(&buf, RowsFromRatings([]models.ImageRating{ir})))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"/imgs/c.png", "c", "1", "", "", "", ""}, records[1])
}

func TestCSVWriter_QuotesCommas(t *testing.T) {
	ir := models.NewImageRating("/imgs/one, two.png")
	var buf bytes.Buffer
	require.NoError(t, CSVWriter{}.Write(&buf, RowsFromRatings([]models.ImageRating{ir})))
	assert.Contains(t, buf.String(), `"/imgs/one, two.png"`)
}

func TestParquetWriter(t *testing.T) {
	var buf bytes.Buffer
	want := RowsFromRatings(sampleRatings())
	require.NoError(t, ParquetWriter{}.Write(&buf, want))

	got, err := parquet.Read[Row](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		ext     string
		wantErr bool
	}{
		{"csv", ".csv", false},
		{"", ".csv", false},
		{"parquet", ".parquet", false},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := ForFormat(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ext, w.Extension())
		})
	}
}
