package execscan

import (
	"fmt"
	"strings"
)

// Rating is the qualitative band a result falls into.
type Rating string

const (
	RatingEfficient    Rating = "efficient"
	RatingNeutral      Rating = "neutral"
	RatingCommentHeavy Rating = "comment_heavy"
	RatingBlank        Rating = "blank"
)

// Default remarks, keyed by rating. Neutral results carry no remark.
const (
	RemarkEfficient    = "Now THAT's some efficient code!"
	RemarkCommentHeavy = "Wow... You must really like comments!"
	BlankMessage       = "The file you chose is blank."
)

// Thresholds bound the neutral band of executable percentages.
type Thresholds struct {
	High float64 `json:"high" yaml:"high"` // strictly above: efficient
	Low  float64 `json:"low" yaml:"low"`   // strictly below: comment heavy
}

// DefaultThresholds returns the 75% / 25% bands.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 75, Low: 25}
}

// Rate maps a percentage onto a Rating. Both bounds are neutral.
func (t Thresholds) Rate(pct float64) Rating {
	switch {
	case pct > t.High:
		return RatingEfficient
	case pct < t.Low:
		return RatingCommentHeavy
	default:
		return RatingNeutral
	}
}

// DefaultRemark returns the built-in remark for a rating.
func DefaultRemark(r Rating) string {
	switch r {
	case RatingEfficient:
		return RemarkEfficient
	case RatingCommentHeavy:
		return RemarkCommentHeavy
	default:
		return ""
	}
}

// Report is what callers render for one classified file.
type Report struct {
	Path       string  `json:"path"`
	Total      int     `json:"total_lines"`
	Executable int     `json:"executable_lines"`
	Percent    float64 `json:"percent"`
	Rating     Rating  `json:"rating"`
	Remark     string  `json:"remark,omitempty"`
	Blank      bool    `json:"blank"`
}

// NewReport builds the Report for a result. Blank results never compute a ratio.
func NewReport(path string, res Result, t Thresholds) Report {
	rep := Report{
		Path:       path,
		Total:      res.Total,
		Executable: res.Executable,
	}
	pct, ok := res.Percent()
	if !ok {
		rep.Blank = true
		rep.Rating = RatingBlank
		return rep
	}
	rep.Percent = pct
	rep.Rating = t.Rate(pct)
	rep.Remark = DefaultRemark(rep.Rating)
	return rep
}

// Result returns the counts the report was built from.
func (r Report) Result() Result {
	return Result{Total: r.Total, Executable: r.Executable}
}

// PercentText formats the percentage to one decimal place.
func (r Report) PercentText() string {
	return fmt.Sprintf("%.1f%%", r.Percent)
}

// Message renders the report as a short human-readable paragraph.
func (r Report) Message() string {
	if r.Blank {
		return BlankMessage
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your code has a total of %d lines, but only %d are run by the computer!\n",
		r.Total, r.Executable)
	fmt.Fprintf(&b, "That's only %s!", r.PercentText())
	if r.Remark != "" {
		fmt.Fprintf(&b, "\n%s", r.Remark)
	}
	return b.String()
}
