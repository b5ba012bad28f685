// Package report renders graded quizzes as PDF documents. It uses only the
// built-in core fonts, so rendering needs no font assets and works offline;
// text is folded to ASCII because the core fonts stop at latin-1.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/edumentor/edumentor/internal/quiz"
)

const (
	pageMargin = 15.0
	labelWidth = 45.0
)

// WriteQuizPDF renders the result as an A4 report to w. An empty
// studentName falls back to "Student".
func WriteQuizPDF(w io.Writer, res *quiz.Result, studentName string) error {
	if res == nil {
		return errors.New("result is required")
	}
	if strings.TrimSpace(studentName) == "" {
		studentName = "Student"
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		generated := fmt.Sprintf("Generated by EduMentor on %s", time.Now().Format("January 02, 2006 at 03:04 PM"))
		pdf.CellFormat(0, 10, generated, "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	writeTitle(pdf)
	writeInfo(pdf, res, studentName)
	writeScore(pdf, res)
	writeFeedback(pdf, res.Score)
	writeDetails(pdf, res)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render quiz pdf: %w", err)
	}
	return nil
}

// FileName builds the download filename for a result.
func FileName(res *quiz.Result) string {
	return fmt.Sprintf("quiz_result_%s_%s_%d.pdf", slug(res.Subject), slug(res.Topic), res.ID)
}

func writeTitle(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(32, 190, 255)
	pdf.CellFormat(0, 14, "EduMentor Quiz Results", "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func writeInfo(pdf *fpdf.Fpdf, res *quiz.Result, studentName string) {
	date := res.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}

	rows := []struct{ label, value string }{
		{"Student Name", asciiSafe(studentName)},
		{"Subject", capitalize(asciiSafe(res.Subject))},
		{"Topic", asciiSafe(res.Topic)},
		{"Difficulty", capitalize(asciiSafe(res.Difficulty))},
		{"Date", date.Format("January 02, 2006")},
	}
	for _, row := range rows {
		pdf.SetFillColor(240, 240, 240)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(labelWidth, 8, row.label, "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row.value, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func writeScore(pdf *fpdf.Fpdf, res *quiz.Result) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Score Summary", "", 1, "L", false, 0, "")

	r, g, b := scoreColor(res.Score)
	pdf.SetFillColor(r, g, b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	banner := fmt.Sprintf("Score: %.1f%%  (%d of %d correct)", res.Score, res.Correct, res.Total)
	pdf.CellFormat(0, 12, banner, "", 1, "C", true, 0, "")
	pdf.Ln(2)

	outcome := "Not passed"
	if res.Passed {
		outcome = "Passed"
	}
	rows := []struct{ label, value string }{
		{"Total Questions", fmt.Sprintf("%d", res.Total)},
		{"Correct Answers", fmt.Sprintf("%d", res.Correct)},
		{"Incorrect Answers", fmt.Sprintf("%d", res.Total-res.Correct)},
		{"Result", outcome},
	}
	for _, row := range rows {
		pdf.SetFillColor(240, 240, 240)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(labelWidth, 8, row.label, "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row.value, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writeFeedback(pdf *fpdf.Fpdf, score float64) {
	pdf.SetFont("Helvetica", "I", 11)
	pdf.SetTextColor(60, 60, 60)
	pdf.MultiCell(0, 6, "Feedback: "+feedback(score), "", "L", false)
	pdf.Ln(4)
}

func writeDetails(pdf *fpdf.Fpdf, res *quiz.Result) {
	if len(res.Details) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Detailed Results", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for i, d := range res.Details {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 6, fmt.Sprintf("Q%d. %s", i+1, asciiSafe(d.Question)), "", "L", false)

		marker := "Correct"
		mr, mg, mb := 0, 128, 0
		if !d.IsCorrect {
			marker = "Incorrect"
			mr, mg, mb = 200, 0, 0
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(mr, mg, mb)
		pdf.CellFormat(0, 6, marker, "", 1, "L", false, 0, "")

		for j, opt := range d.Options {
			line := fmt.Sprintf("%c) %s", 'A'+j, asciiSafe(opt))
			style, r, g, b := "", 0, 0, 0
			switch {
			case j == d.CorrectAnswer:
				line += "  (correct answer)"
				style, r, g, b = "B", 0, 128, 0
			case j == d.UserAnswer && !d.IsCorrect:
				line += "  (your answer)"
				r, g, b = 200, 0, 0
			}
			pdf.SetFont("Helvetica", style, 10)
			pdf.SetTextColor(r, g, b)
			pdf.MultiCell(0, 5, "    "+line, "", "L", false)
		}

		if d.UserAnswer < 0 {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 5, "    Not answered", "", 1, "L", false, 0, "")
		}
		if d.Explanation != "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, "Explanation: "+asciiSafe(d.Explanation), "", "L", false)
		}
		pdf.Ln(3)
	}
}

// scoreColor picks the banner color for a score band.
func scoreColor(score float64) (r, g, b int) {
	switch {
	case score >= 90:
		return 0, 128, 0 // green
	case score >= 75:
		return 0, 102, 204 // blue
	case score >= 60:
		return 255, 165, 0 // amber
	default:
		return 200, 0, 0 // red
	}
}

// feedback returns the encouragement line for a score band.
func feedback(score float64) string {
	switch {
	case score >= 90:
		return "Outstanding performance! You have mastered this topic."
	case score >= 75:
		return "Great job! You have a strong understanding of the material."
	case score >= 60:
		return "Good effort! Review the explanations to strengthen your understanding."
	case score >= 40:
		return "Keep practicing! Focus on the areas where you made mistakes."
	default:
		return "Don't give up! Review the material and try again. You can do it!"
	}
}

// asciiSafe folds common typographic characters to ASCII and drops the
// rest. Quiz content is model-generated and may carry characters the core
// fonts cannot encode.
func asciiSafe(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '‘', '’':
			b.WriteByte('\'')
		case '“', '”':
			b.WriteByte('"')
		case '–', '—', '−':
			b.WriteByte('-')
		case '…':
			b.WriteString("...")
		case '×':
			b.WriteByte('x')
		case '÷':
			b.WriteByte('/')
		default:
			if r == '\n' || r == '\t' || (r >= 32 && r < 127) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// slug lowercases s and collapses anything that is not a letter or digit
// into single underscores, keeping download filenames header-safe.
func slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
