package excel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/derekprior/potdraw/internal/draw"
	"github.com/derekprior/potdraw/internal/schedule"
	"github.com/xuri/excelize/v2"
)

const (
	DrawSheet     = "Draw"
	FixturesSheet = "Fixtures"
)

// FixtureHeaders are the column headings of the Fixtures sheet.
var FixtureHeaders = []string{"Week", "Day", "Time", "Team A", "Team B"}

// Generate creates an Excel workbook with the draw, the weekly fixtures and
// per-team sheets. result may be nil, in which case only the draw is written.
func Generate(p *draw.Pairing, result *schedule.Result, slots []schedule.Slot) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	s, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("creating styles: %w", err)
	}

	if err := writeDrawSheet(f, s, p); err != nil {
		return nil, fmt.Errorf("writing draw sheet: %w", err)
	}

	if result != nil {
		rows := fixtureRows(result, slots)
		if err := writeFixturesSheet(f, s, rows); err != nil {
			return nil, fmt.Errorf("writing fixtures sheet: %w", err)
		}
		if err := writeTeamSheets(f, s, p.Teams, rows); err != nil {
			return nil, fmt.Errorf("writing team sheets: %w", err)
		}
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

type styles struct {
	header   int
	cell     int
	centered int
	shaded   int
}

func newStyles(f *excelize.File) (*styles, error) {
	var s styles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	s.cell, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	if err != nil {
		return nil, err
	}
	s.centered, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	s.shaded, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func writeHeaders(f *excelize.File, s *styles, sheet string, headers []string) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), s.header)
}

// writeDrawSheet lists every team with its opponents grouped by pot.
func writeDrawSheet(f *excelize.File, s *styles, p *draw.Pairing) error {
	sheet := DrawSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Pot", "Team"}
	for _, g := range p.Groups {
		headers = append(headers, g.Label+" opponents")
	}
	writeHeaders(f, s, sheet, headers)

	for i, e := range p.Entries {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), e.Team.GroupLabel)
		f.SetCellValue(sheet, cellRef(2, row), e.Team.Name)
		for gi, g := range p.Groups {
			var names []string
			for _, opp := range e.OpponentsByGroup[g.ID] {
				names = append(names, opp.Name)
			}
			f.SetCellValue(sheet, cellRef(gi+3, row), strings.Join(names, ", "))
		}
		f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), s.cell)
	}

	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "B", 28)
	if len(p.Groups) > 0 {
		f.SetColWidth(sheet, colLetter(3), colLetter(len(headers)), 48)
	}
	return nil
}

// FixtureRow is one row of the Fixtures sheet. Row is the 1-based sheet row
// when read back from a workbook.
type FixtureRow struct {
	Row   int
	Week  int
	Day   string
	Time  string
	TeamA string
	TeamB string
}

// fixtureRows flattens a schedule into sheet rows, week by week in slot order.
func fixtureRows(result *schedule.Result, slots []schedule.Slot) []FixtureRow {
	var rows []FixtureRow
	for _, w := range result.Weeks {
		for _, fx := range orderedFixtures(w.Fixtures, slots) {
			rows = append(rows, FixtureRow{
				Row:   len(rows) + 2,
				Week:  w.Number,
				Day:   fx.Day,
				Time:  fx.Time,
				TeamA: fx.TeamA.Name,
				TeamB: fx.TeamB.Name,
			})
		}
	}
	return rows
}

// writeFixturesSheet writes one row per match. Rows of even weeks are shaded.
func writeFixturesSheet(f *excelize.File, s *styles, rows []FixtureRow) error {
	sheet := FixturesSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeaders(f, s, sheet, FixtureHeaders)

	for i, fx := range rows {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), fx.Week)
		f.SetCellValue(sheet, cellRef(2, row), fx.Day)
		f.SetCellValue(sheet, cellRef(3, row), fx.Time)
		f.SetCellValue(sheet, cellRef(4, row), fx.TeamA)
		f.SetCellValue(sheet, cellRef(5, row), fx.TeamB)
		f.SetCellStyle(sheet, cellRef(1, row), cellRef(3, row), s.centered)
		f.SetCellStyle(sheet, cellRef(4, row), cellRef(5, row), s.cell)
	}

	// Set column widths (sized for Arial 16)
	f.SetColWidth(sheet, "A", "A", 10)
	f.SetColWidth(sheet, "B", "B", 14)
	f.SetColWidth(sheet, "C", "C", 16)
	f.SetColWidth(sheet, "D", "E", 28)

	if len(rows) == 0 {
		return nil
	}
	return f.SetConditionalFormat(sheet, fmt.Sprintf("A2:E%d", len(rows)+1), []excelize.ConditionalFormatOptions{
		{
			Type:     "formula",
			Criteria: "ISEVEN($A2)",
			Format:   &s.shaded,
		},
	})
}

// writeTeamSheets writes a sheet per team listing its fixtures. Rows naming
// a team that is not in teams are skipped.
func writeTeamSheets(f *excelize.File, s *styles, teams []draw.Team, rows []FixtureRow) error {
	headers := []string{"Week", "Day", "Time", "Opponent", "Pot"}
	byName := make(map[string]draw.Team, len(teams))
	for _, t := range teams {
		byName[t.Name] = t
	}
	used := make(map[string]bool)

	for _, team := range teams {
		sheet := sheetName(team.Name, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("sheet for %s: %w", team.Name, err)
		}
		writeHeaders(f, s, sheet, headers)

		row := 2
		for _, fx := range rows {
			var opp string
			switch team.Name {
			case fx.TeamA:
				opp = fx.TeamB
			case fx.TeamB:
				opp = fx.TeamA
			default:
				continue
			}
			f.SetCellValue(sheet, cellRef(1, row), fx.Week)
			f.SetCellValue(sheet, cellRef(2, row), fx.Day)
			f.SetCellValue(sheet, cellRef(3, row), fx.Time)
			f.SetCellValue(sheet, cellRef(4, row), opp)
			f.SetCellValue(sheet, cellRef(5, row), byName[opp].GroupLabel)
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), s.cell)
			row++
		}

		widths := []float64{10, 14, 16, 28, 12}
		for i, w := range widths {
			col := colLetter(i + 1)
			f.SetColWidth(sheet, col, col, w)
		}
	}

	return nil
}

// ReadFixtures reads the Fixtures sheet back. Rows with an empty week cell
// are skipped.
func ReadFixtures(f *excelize.File) ([]FixtureRow, error) {
	rows, err := f.GetRows(FixturesSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FixturesSheet, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", FixturesSheet)
	}

	header := rows[0]
	for i, h := range FixtureHeaders {
		if got := cell(header, i); got != h {
			return nil, fmt.Errorf("%s: column %d is %q, want %q", FixturesSheet, i+1, got, h)
		}
	}

	var fixtures []FixtureRow
	for i, row := range rows {
		if i == 0 || cell(row, 0) == "" {
			continue
		}
		week, err := strconv.Atoi(cell(row, 0))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid week %q", i+1, row[0])
		}
		fixtures = append(fixtures, FixtureRow{
			Row:   i + 1,
			Week:  week,
			Day:   cell(row, 1),
			Time:  cell(row, 2),
			TeamA: cell(row, 3),
			TeamB: cell(row, 4),
		})
	}

	return fixtures, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// UpdateTeamSheets rebuilds the per-team sheets of a saved workbook from its
// Fixtures sheet, so hand edits to the fixtures carry through.
func UpdateTeamSheets(path string, groups []draw.Group) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	rows, err := ReadFixtures(f)
	if err != nil {
		return err
	}
	s, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("creating styles: %w", err)
	}

	var teams []draw.Team
	for _, g := range groups {
		teams = append(teams, g.Teams...)
	}
	used := make(map[string]bool)
	for _, t := range teams {
		name := sheetName(t.Name, used)
		if idx, _ := f.GetSheetIndex(name); idx >= 0 {
			if err := f.DeleteSheet(name); err != nil {
				return fmt.Errorf("removing sheet %s: %w", name, err)
			}
		}
	}

	if err := writeTeamSheets(f, s, teams, rows); err != nil {
		return fmt.Errorf("writing team sheets: %w", err)
	}
	return f.Save()
}

// orderedFixtures returns a week's fixtures in slot template order.
func orderedFixtures(fixtures []schedule.Fixture, slots []schedule.Slot) []schedule.Fixture {
	rank := make(map[schedule.Slot]int, len(slots))
	for i, sl := range slots {
		rank[sl] = i
	}
	out := append([]schedule.Fixture(nil), fixtures...)
	sort.SliceStable(out, func(i, j int) bool {
		return rank[schedule.Slot{Day: out[i].Day, Time: out[i].Time}] <
			rank[schedule.Slot{Day: out[j].Day, Time: out[j].Time}]
	})
	return out
}

// sheetName turns a team name into a unique, valid worksheet name.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, name)
	clean = strings.Trim(clean, "'")
	if clean == "" || strings.EqualFold(clean, DrawSheet) || strings.EqualFold(clean, FixturesSheet) {
		clean = "Team " + clean
	}
	clean = truncate(clean, 31)

	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(clean, 31-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
