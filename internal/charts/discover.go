package charts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/jgoulah/greenbutton/internal/utility"
)

var yearDirPattern = regexp.MustCompile(`^\d{4}$`)

// YearCharts lists the chart files found for one year
type YearCharts struct {
	Year   int
	Dir    string
	Annual string         // Empty when missing
	Months map[int]string // Month number to path, only months present
}

// File is a chart file with its size
type File struct {
	Path string
	Size int64
}

// Files returns the year's chart files, annual first then by month
func (y YearCharts) Files() []string {
	var files []string
	if y.Annual != "" {
		files = append(files, y.Annual)
	}
	months := make([]int, 0, len(y.Months))
	for m := range y.Months {
		months = append(months, m)
	}
	sort.Ints(months)
	for _, m := range months {
		files = append(files, y.Months[m])
	}
	return files
}

// Discover finds year chart directories for a utility. A missing graphs tree
// yields no charts rather than an error.
func Discover(graphsDir string, p utility.Profile) ([]YearCharts, error) {
	base := filepath.Join(graphsDir, p.Label)
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", base, err)
	}

	var found []YearCharts
	for _, entry := range entries {
		if !entry.IsDir() || !yearDirPattern.MatchString(entry.Name()) {
			continue
		}
		year, _ := strconv.Atoi(entry.Name())
		dir := filepath.Join(base, entry.Name())

		yc := YearCharts{Year: year, Dir: dir, Months: make(map[int]string)}
		if path := filepath.Join(dir, p.Charts.Annual); exists(path) {
			yc.Annual = path
		}
		for m := 1; m <= 12; m++ {
			if path := filepath.Join(dir, p.Charts.Month(m)); exists(path) {
				yc.Months[m] = path
			}
		}
		found = append(found, yc)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Year < found[j].Year })
	return found, nil
}

// Stat returns the chart files of a year with their sizes
func Stat(y YearCharts) ([]File, error) {
	var files []File
	for _, path := range y.Files() {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: path, Size: info.Size()})
	}
	return files, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
