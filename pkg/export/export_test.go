package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradeSheet() Dataset {
	return Dataset{
		Headers: []string{"Student", "Score"},
		Rows: []map[string]string{
			{"Student": "ana", "Score": "90"},
			{"Student": "budi, jr", "Score": ""},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderCSV(t *testing.T) {
	file, err := NewRenderer().Render(FormatCSV, gradeSheet(), "Essay", "grades")
	require.NoError(t, err)

	assert.Equal(t, "grades.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "Student,Score\nana,90\n\"budi, jr\",\n", string(file.Body))
}

func TestRenderPDF(t *testing.T) {
	file, err := NewRenderer().Render(FormatPDF, gradeSheet(), "Essay", "grades")
	require.NoError(t, err)

	assert.Equal(t, "grades.pdf", file.Name)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := NewRenderer().Render(FormatCSV, Dataset{}, "", "empty")
	assert.Error(t, err)
}

func TestRenderCSVEscapesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Student", "Feedback"},
		Rows: []map[string]string{
			{"Student": "=HYPERLINK(\"http://x\")", "Feedback": "@SUM(A1)"},
			{"Student": "ana", "Feedback": "well done"},
		},
	}
	file, err := NewRenderer().Render(FormatCSV, data, "", "grades")
	require.NoError(t, err)

	assert.Equal(t, "Student,Feedback\n\"'=HYPERLINK(\"\"http://x\"\")\",'@SUM(A1)\nana,well done\n", string(file.Body))
}
