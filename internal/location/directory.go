package location

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	dErrors "donorcal/pkg/domain-errors"
)

// UnknownPrefecture labels rows whose prefecture cell is empty.
const UnknownPrefecture = "不明"

var requiredColumns = []string{"name", "latitude", "longitude", "prefecture"}

// Location is a donation site.
type Location struct {
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Prefecture string  `json:"prefecture"`
}

// Directory is an immutable list of donation sites in file order.
type Directory struct {
	locations []Location
	byName    map[string]int
}

// Open loads a directory from a CSV file.
func Open(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open locations file: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV parses a header row naming at least name, latitude, longitude and
// prefecture, in any order, followed by one site per row.
func LoadCSV(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, dErrors.New(dErrors.CodeValidation, "locations file is empty")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "read locations header")
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	dir := &Directory{byName: make(map[string]int)}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("read locations line %d", line))
		}
		loc, err := parseRow(row, cols, line)
		if err != nil {
			return nil, err
		}
		if _, dup := dir.byName[loc.Name]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("line %d: duplicate location %q", line, loc.Name))
		}
		dir.byName[loc.Name] = len(dir.locations)
		dir.locations = append(dir.locations, loc)
	}
	return dir, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("locations file is missing required column %q", name))
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int, line int) (Location, error) {
	cell := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	loc := Location{Name: cell("name"), Prefecture: cell("prefecture")}
	if loc.Name == "" {
		return Location{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("line %d: name is required", line))
	}
	if loc.Prefecture == "" {
		loc.Prefecture = UnknownPrefecture
	}

	var err error
	if loc.Latitude, err = parseCoordinate(cell("latitude"), 90); err != nil {
		return Location{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("line %d: invalid latitude", line))
	}
	if loc.Longitude, err = parseCoordinate(cell("longitude"), 180); err != nil {
		return Location{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("line %d: invalid longitude", line))
	}
	return loc, nil
}

func parseCoordinate(s string, bound float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < -bound || v > bound {
		return 0, errors.New("coordinate out of range")
	}
	return v, nil
}

// Empty returns a directory with no sites.
func Empty() *Directory {
	return &Directory{byName: map[string]int{}}
}

// All returns the sites in file order.
func (d *Directory) All() []Location {
	return append([]Location(nil), d.locations...)
}

// Lookup finds a site by exact name.
func (d *Directory) Lookup(name string) (Location, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Location{}, false
	}
	return d.locations[i], true
}

func (d *Directory) Len() int { return len(d.locations) }
