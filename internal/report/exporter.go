package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"event-scheduler-backend/internal/schedule"
)

// Supported export formats.
const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"
	FormatPDF   = "pdf"
)

const (
	mimeCSV   = "text/csv"
	mimeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF   = "application/pdf"
)

const timeLayout = "2006-01-02 15:04"

// ErrUnsupportedFormat is returned for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// File is an exported report ready to be served.
type File struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Exporter renders scheduling reports as downloadable files.
type Exporter interface {
	Utilization(format string, from, to time.Time, rows []schedule.Utilization) (*File, error)
	Conflicts(format string, rows []schedule.Conflict) (*File, error)
}

type exporter struct {
	loc *time.Location
	now func() time.Time
}

// NewExporter creates an exporter rendering times in loc.
func NewExporter(loc *time.Location) Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &exporter{loc: loc, now: time.Now}
}

// table is the format-independent shape of a report.
type table struct {
	title   string
	headers []string
	widths  []float64 // PDF column widths in mm
	rows    [][]string
}

func (e *exporter) Utilization(format string, from, to time.Time, rows []schedule.Utilization) (*File, error) {
	t := table{
		title:   fmt.Sprintf("Resource Utilization %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02")),
		headers: []string{"Resource ID", "Name", "Type", "Total Hours", "Upcoming Bookings", "Next Booking"},
		widths:  []float64{25, 60, 40, 30, 40, 70},
	}
	for _, u := range rows {
		next := ""
		if len(u.UpcomingBookings) > 0 {
			b := u.UpcomingBookings[0]
			next = fmt.Sprintf("%s (%s)", b.Title, b.StartTime.In(e.loc).Format(timeLayout))
		}
		t.rows = append(t.rows, []string{
			strconv.FormatInt(u.Resource.ID, 10),
			u.Resource.Name,
			u.Resource.Type,
			strconv.FormatFloat(u.TotalHours, 'f', 2, 64),
			strconv.Itoa(len(u.UpcomingBookings)),
			next,
		})
	}
	return e.export(format, "utilization_report", t)
}

func (e *exporter) Conflicts(format string, rows []schedule.Conflict) (*File, error) {
	t := table{
		title:   "Resource Conflicts",
		headers: []string{"Resource", "Event 1", "Event 1 Time", "Event 2", "Event 2 Time"},
		widths:  []float64{45, 55, 60, 55, 60},
	}
	for _, c := range rows {
		t.rows = append(t.rows, []string{
			c.Resource.Name,
			c.Event1.Title,
			e.span(c.Event1.StartTime, c.Event1.EndTime),
			c.Event2.Title,
			e.span(c.Event2.StartTime, c.Event2.EndTime),
		})
	}
	return e.export(format, "conflicts_report", t)
}

func (e *exporter) span(start, end time.Time) string {
	return start.In(e.loc).Format(timeLayout) + " - " + end.In(e.loc).Format(timeLayout)
}

// export chooses the renderer for format.
func (e *exporter) export(format, name string, t table) (*File, error) {
	timestamp := e.now().Format("20060102_150405")

	var (
		data []byte
		mime string
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = exportCSV(t)
		mime = mimeCSV
	case FormatExcel:
		data, err = exportExcel(t)
		mime = mimeExcel
	case FormatPDF:
		data, err = exportPDF(t)
		mime = mimePDF
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return &File{
		Data:        data,
		Filename:    fmt.Sprintf("%s_%s.%s", name, timestamp, format),
		ContentType: mime,
	}, nil
}

func exportCSV(t table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.headers); err != nil {
		return nil, err
	}
	for _, record := range t.rows {
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportExcel(t table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Report"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, header := range t.headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
	}
	for r, record := range t.rows {
		for c, v := range record {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportPDF(t table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(t.title))
	pdf.Ln(20)

	pdf.SetFont("Arial", "B", 9)
	for i, h := range t.headers {
		pdf.CellFormat(t.widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, record := range t.rows {
		for i, v := range record {
			pdf.CellFormat(t.widths[i], 6, tr(v), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
