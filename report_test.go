package execscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_Percent(t *testing.T) {
	t.Parallel()

	pct, ok := Result{Total: 4, Executable: 1}.Percent()
	assert.True(t, ok)
	assert.InDelta(t, 25.0, pct, 1e-9)

	_, ok = Result{}.Percent()
	assert.False(t, ok, "blank results have no ratio")
	assert.True(t, Result{}.Blank())
	assert.False(t, Result{Total: 1}.Blank())
}

func TestThresholds_Rate(t *testing.T) {
	t.Parallel()
	th := DefaultThresholds()

	tests := []struct {
		res  Result
		want Rating
	}{
		{Result{Total: 4, Executable: 3}, RatingNeutral},          // exactly 75.0
		{Result{Total: 4, Executable: 1}, RatingNeutral},          // exactly 25.0
		{Result{Total: 1000, Executable: 751}, RatingEfficient},   // 75.1
		{Result{Total: 1000, Executable: 249}, RatingCommentHeavy}, // 24.9
		{Result{Total: 2, Executable: 1}, RatingNeutral},
		{Result{Total: 1, Executable: 1}, RatingEfficient},
		{Result{Total: 3, Executable: 0}, RatingCommentHeavy},
	}
	for _, tc := range tests {
		pct, ok := tc.res.Percent()
		assert.True(t, ok)
		assert.Equal(t, tc.want, th.Rate(pct), "result %+v", tc.res)
	}
}

func TestNewReport(t *testing.T) {
	t.Parallel()

	rep := NewReport("a.py", Result{Total: 10, Executable: 8}, DefaultThresholds())
	assert.Equal(t, RatingEfficient, rep.Rating)
	assert.Equal(t, RemarkEfficient, rep.Remark)
	assert.Equal(t, "80.0%", rep.PercentText())
	assert.Equal(t, Result{Total: 10, Executable: 8}, rep.Result())
	assert.False(t, rep.Blank)

	rep = NewReport("b.py", Result{Total: 10, Executable: 1}, DefaultThresholds())
	assert.Equal(t, RatingCommentHeavy, rep.Rating)
	assert.Equal(t, RemarkCommentHeavy, rep.Remark)

	rep = NewReport("c.py", Result{Total: 2, Executable: 1}, DefaultThresholds())
	assert.Equal(t, RatingNeutral, rep.Rating)
	assert.Empty(t, rep.Remark)
}

func TestReport_Message(t *testing.T) {
	t.Parallel()

	rep := NewReport("a.py", Result{Total: 3, Executable: 1}, DefaultThresholds())
	assert.Equal(t,
		"Your code has a total of 3 lines, but only 1 are run by the computer!\nThat's only 33.3%!",
		rep.Message())

	rep = NewReport("b.py", Result{Total: 4, Executable: 4}, DefaultThresholds())
	assert.Equal(t,
		"Your code has a total of 4 lines, but only 4 are run by the computer!\nThat's only 100.0%!\nNow THAT's some efficient code!",
		rep.Message())
}

func TestReport_Blank(t *testing.T) {
	t.Parallel()
	rep := NewReport("empty.py", Result{}, DefaultThresholds())
	assert.True(t, rep.Blank)
	assert.Equal(t, RatingBlank, rep.Rating)
	assert.Equal(t, BlankMessage, rep.Message())
	assert.Empty(t, rep.Remark)
}

func TestReport_CustomThresholds(t *testing.T) {
	t.Parallel()
	th := Thresholds{High: 50, Low: 10}
	rep := NewReport("a.py", Result{Total: 3, Executable: 2}, th)
	assert.Equal(t, RatingEfficient, rep.Rating)
}

func TestDefaultRemark(t *testing.T) {
	t.Parallel()
	assert.Equal(t, RemarkEfficient, DefaultRemark(RatingEfficient))
	assert.Equal(t, RemarkCommentHeavy, DefaultRemark(RatingCommentHeavy))
	assert.Empty(t, DefaultRemark(RatingNeutral))
	assert.Empty(t, DefaultRemark(RatingBlank))
}
