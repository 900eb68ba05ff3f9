package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

func TestExportXLSX(t *testing.T) {
	refs := seedRefs()
	refs[1].Image = model.NewEmbeddedImage("data:image/png;base64,AAAA")

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, refs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(referencesSheet)
	require.NoError(t, err)
	require.Len(t, rows, len(refs)+1)

	assert.Equal(t, "Order Number", rows[0][3])
	assert.Equal(t, "ref-1", rows[1][0])
	assert.Equal(t, "GridSystems Global", rows[1][2])
	assert.Equal(t, "bundling, torque", rows[1][5])
	assert.Equal(t, "(embedded image)", rows[2][7])

	sections, err := f.GetRows(sectionsSheet)
	require.NoError(t, err)
	require.Len(t, sections, len(model.Sections)+1)
	assert.Equal(t, []string{"Door", "3"}, sections[1])
}

func TestExportJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())
}
