package cli

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/common"
)

const (
	notAvailable      = "N/A"
	listFileNameWidth = 40
	dateLayout        = "Jan 2, 2006 03:04 PM"
)

var numericPrefix = regexp.MustCompile(`^(\d+_)+`)

// FormatBloodGroup renders the server's enum form (A_POS, O_NEG) as A+, O-.
func FormatBloodGroup(bg string) string {
	if bg == "" {
		return notAvailable
	}
	return strings.Replace(strings.Replace(bg, "_POS", "+", 1), "_NEG", "-", 1)
}

// TruncateFileName shortens names longer than maxLength. The extension is
// kept and leading numeric id groups ("1700000000_") are dropped.
func TruncateFileName(name string, maxLength int) string {
	if name == "" {
		return common.DefaultArtifactName
	}
	if len(name) <= maxLength {
		return name
	}
	dot := strings.LastIndex(name, ".")
	if dot == -1 {
		return name[:maxLength] + "..."
	}
	ext := name[dot:]
	base := numericPrefix.ReplaceAllString(name[:dot], "")
	if strings.TrimSpace(base) == "" {
		base = "File"
	}
	if avail := maxLength - len(ext) - 3; len(base) > avail {
		if avail < 0 {
			avail = 0
		}
		base = base[:avail]
	}
	return base + "..." + ext
}

func formatDate(ts models.Timestamp) string {
	if ts.IsZero() {
		return notAvailable
	}
	return ts.Local().Format(dateLayout)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func formatAge(age *int) string {
	if age == nil {
		return notAvailable
	}
	return strconv.Itoa(*age)
}

// printDoctorPrescriptions writes the doctor's listing as a table.
func printDoctorPrescriptions(w io.Writer, list []models.PrescriptionSummary) {
	tw := tabwriter.NewWriter(w, 4, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tPATIENT\tEMAIL\tPHONE\tAGE\tGENDER\tBLOOD\tUPLOADED")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			TruncateFileName(p.FileName, listFileNameWidth),
			orNA(p.PatientName),
			orNA(p.PatientEmail),
			orNA(p.PatientPhone),
			formatAge(p.PatientAge),
			orNA(p.PatientGender),
			FormatBloodGroup(p.PatientBloodGroup),
			formatDate(p.UploadedAt),
		)
	}
	tw.Flush()
}

// printPatientPrescriptions writes a verified patient's results as a table.
func printPatientPrescriptions(w io.Writer, list []models.PrescriptionSummary) {
	tw := tabwriter.NewWriter(w, 4, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tDOCTOR\tDOCTOR EMAIL\tUPLOADED")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			TruncateFileName(p.FileName, listFileNameWidth),
			orNA(p.DoctorName),
			orNA(p.DoctorEmail),
			formatDate(p.UploadedAt),
		)
	}
	tw.Flush()
}

func formatSize(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
