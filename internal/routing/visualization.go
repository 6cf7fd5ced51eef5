package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Cell is one source × destination slot of the routing grid.
type Cell struct {
	Source      PointInfo  `json:"source"`
	Destination PointInfo  `json:"destination"`
	Routable    bool       `json:"routable"`
	Route       *RouteInfo `json:"route,omitempty"`
}

// Visualization is a read-only grid of every possible route. Rows follow
// Sources and columns follow Destinations, both sorted by name.
type Visualization struct {
	Sources      []PointInfo `json:"sources"`
	Destinations []PointInfo `json:"destinations"`
	Cells        [][]Cell    `json:"cells"`
}

// Visualization builds the source × destination grid.
func (m *Matrix) Visualization() Visualization {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sources, destinations []*Point
	for _, p := range m.points {
		if p.CanBeSource() {
			sources = append(sources, p)
		}
		if p.CanBeDestination() {
			destinations = append(destinations, p)
		}
	}
	sortByName(sources)
	sortByName(destinations)

	v := Visualization{
		Sources:      make([]PointInfo, len(sources)),
		Destinations: make([]PointInfo, len(destinations)),
		Cells:        make([][]Cell, len(sources)),
	}
	for j, dst := range destinations {
		v.Destinations[j] = dst.Info()
	}
	for i, src := range sources {
		v.Sources[i] = src.Info()
		row := make([]Cell, len(destinations))
		for j, dst := range destinations {
			cell := Cell{
				Source:      v.Sources[i],
				Destination: v.Destinations[j],
				Routable:    src.IsCompatibleWith(dst),
			}
			if r := m.routeBetweenLocked(src.ID(), dst.ID()); r != nil {
				info := r.Info()
				cell.Route = &info
			}
			row[j] = cell
		}
		v.Cells[i] = row
	}
	return v
}

// Cells returns the grid flattened row by row.
func (m *Matrix) Cells() []Cell {
	v := m.Visualization()
	cells := make([]Cell, 0, len(v.Sources)*len(v.Destinations))
	for _, row := range v.Cells {
		cells = append(cells, row...)
	}
	return cells
}

func sortByName(points []*Point) {
	sort.Slice(points, func(i, j int) bool {
		a, b := strings.ToLower(points[i].Name()), strings.ToLower(points[j].Name())
		if a != b {
			return a < b
		}
		return points[i].ID() < points[j].ID()
	})
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	disabledStyle = lipgloss.NewStyle().Faint(true).Padding(0, 1)
)

// RenderText draws the grid as a bordered text table. Connected cells show
// the gain in dB, disabled routes are suffixed "(off)", routable empty
// cells show "·" and impossible cells are blank.
func (v Visualization) RenderText() string {
	headers := make([]string, 0, len(v.Destinations)+1)
	headers = append(headers, "source \\ dest")
	for _, d := range v.Destinations {
		headers = append(headers, d.Name)
	}

	rows := make([][]string, len(v.Cells))
	for i, row := range v.Cells {
		cols := make([]string, 0, len(row)+1)
		cols = append(cols, v.Sources[i].Name)
		for _, c := range row {
			cols = append(cols, cellText(c))
		}
		rows[i] = cols
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return headerStyle
			}
			if c := v.Cells[row][col-1]; c.Route != nil && !c.Route.Enabled {
				return disabledStyle
			}
			return cellStyle
		})
	return t.String()
}

func cellText(c Cell) string {
	switch {
	case c.Route != nil && c.Route.Enabled:
		return fmt.Sprintf("%+.1f dB", c.Route.GainDB)
	case c.Route != nil:
		return fmt.Sprintf("%+.1f dB (off)", c.Route.GainDB)
	case c.Routable:
		return "·"
	default:
		return ""
	}
}
