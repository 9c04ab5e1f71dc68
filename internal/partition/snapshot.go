package partition

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// npyMagic opens every NumPy array file
var npyMagic = []byte("\x93NUMPY")

// WriteSnapshot writes records as a little-endian float64 matrix in NumPy's
// .npy v1.0 format. Column 0 is the date as YYYYMMDD; the remaining columns
// follow the profile's column order, with NaN for missing values.
func WriteSnapshot(w io.Writer, p utility.Profile, records []models.Record) error {
	cols := len(p.Columns) + 1
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", len(records), cols)

	// magic(6) + version(2) + header length(2) + header must be a multiple of 64,
	// with the header terminated by a newline
	const prefix = 10
	pad := 64 - (prefix+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	buf.WriteString(header)

	row := make([]float64, cols)
	for _, r := range records {
		row[0] = float64(r.Date.Year()*10000 + int(r.Date.Month())*100 + r.Date.Day())
		for i, col := range p.Columns {
			if v, ok := r.Values[col]; ok {
				row[i+1] = v
			} else {
				row[i+1] = math.NaN()
			}
		}
		if err := binary.Write(&buf, binary.LittleEndian, row); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}
