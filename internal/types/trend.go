package types

// DailyTrendPoint holds per-source counts for one calendar date.
// Every source has a field so per-source trend sums always equal totals.
type DailyTrendPoint struct {
	Date           string `json:"date"`
	Code           int    `json:"code"`
	Chat           int    `json:"chat"`
	Reaction       int    `json:"reaction"`
	Document       int    `json:"document"`
	File           int    `json:"file"`
	Meeting        int    `json:"meeting"`
	MeetingSummary int    `json:"meeting_summary"`
	Total          int    `json:"total"`
}

// Add increments the counter for source. Unknown sources are rejected.
func (p *DailyTrendPoint) Add(source SourceType) bool {
	switch source {
	case SourceCode:
		p.Code++
	case SourceChat:
		p.Chat++
	case SourceReaction:
		p.Reaction++
	case SourceDocument:
		p.Document++
	case SourceFile:
		p.File++
	case SourceMeeting:
		p.Meeting++
	case SourceMeetingSummary:
		p.MeetingSummary++
	default:
		return false
	}
	p.Total++
	return true
}

// Count returns the counter for source
func (p DailyTrendPoint) Count(source SourceType) int {
	switch source {
	case SourceCode:
		return p.Code
	case SourceChat:
		return p.Chat
	case SourceReaction:
		return p.Reaction
	case SourceDocument:
		return p.Document
	case SourceFile:
		return p.File
	case SourceMeeting:
		return p.Meeting
	case SourceMeetingSummary:
		return p.MeetingSummary
	}
	return 0
}

// WeeklyTrendPoint sums DailyTrendPoints over up to seven consecutive dates
type WeeklyTrendPoint struct {
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Days      int            `json:"days"`
	BySource  map[string]int `json:"by_source"`
	Total     int            `json:"total"`
}

// ZeroDailyTrends returns one zeroed point per date of w
func ZeroDailyTrends(w Window) []DailyTrendPoint {
	points := make([]DailyTrendPoint, w.Days())
	for i := range points {
		points[i].Date = w.Date(i)
	}
	return points
}

// WeeklyTrends rolls daily points into 7-day buckets starting at the first date
func WeeklyTrends(daily []DailyTrendPoint) []WeeklyTrendPoint {
	weeks := make([]WeeklyTrendPoint, 0, (len(daily)+6)/7)
	for start := 0; start < len(daily); start += 7 {
		end := start + 7
		if end > len(daily) {
			end = len(daily)
		}
		week := WeeklyTrendPoint{
			StartDate: daily[start].Date,
			EndDate:   daily[end-1].Date,
			Days:      end - start,
			BySource:  make(map[string]int, len(AllSources)),
		}
		for _, source := range AllSources {
			week.BySource[string(source)] = 0
		}
		for _, p := range daily[start:end] {
			for _, source := range AllSources {
				week.BySource[string(source)] += p.Count(source)
			}
			week.Total += p.Total
		}
		weeks = append(weeks, week)
	}
	return weeks
}
