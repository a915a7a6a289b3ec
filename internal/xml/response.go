package xml

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/librecur/recurrence"
)

// OccurrenceList is the XML rendering of an expanded schedule
type OccurrenceList struct {
	ScheduleID string
	Title      string
	Summary    string
	RRule      string
	Dates      []time.Time
}

// ToXML converts an OccurrenceList to an XML document
func (l *OccurrenceList) ToXML() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(TagOccurrences)
	AddNamespaces(doc)

	if l.ScheduleID != "" {
		root.CreateAttr(AttrSchedule, l.ScheduleID)
	}
	if l.Title != "" {
		root.CreateAttr(AttrTitle, l.Title)
	}
	root.CreateAttr(AttrCount, strconv.Itoa(len(l.Dates)))

	if l.Summary != "" {
		root.CreateElement(TagSummary).SetText(l.Summary)
	}
	if l.RRule != "" {
		root.CreateElement(TagRRule).SetText(l.RRule)
	}

	for _, d := range l.Dates {
		occ := root.CreateElement(TagOccurrence)
		occ.CreateAttr(AttrDate, recurrence.FormatDate(d))
		occ.CreateAttr(AttrWeekday, string(recurrence.WeekdayOf(d.Weekday())))
	}

	return doc
}

// Parse parses an occurrence list from an XML document
func (l *OccurrenceList) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if root.Tag != TagOccurrences {
		return fmt.Errorf("invalid root tag: %s", root.Tag)
	}

	*l = OccurrenceList{
		ScheduleID: root.SelectAttrValue(AttrSchedule, ""),
		Title:      root.SelectAttrValue(AttrTitle, ""),
	}
	if e := root.SelectElement(TagSummary); e != nil {
		l.Summary = e.Text()
	}
	if e := root.SelectElement(TagRRule); e != nil {
		l.RRule = e.Text()
	}

	for _, occ := range root.SelectElements(TagOccurrence) {
		d, err := recurrence.ParseDate(occ.SelectAttrValue(AttrDate, ""))
		if err != nil {
			return fmt.Errorf("invalid occurrence: %w", err)
		}
		l.Dates = append(l.Dates, d)
	}

	if want := root.SelectAttrValue(AttrCount, ""); want != "" && want != strconv.Itoa(len(l.Dates)) {
		return fmt.Errorf("count attribute %s does not match %d occurrences", want, len(l.Dates))
	}
	return nil
}

// ErrorDocument renders an error message as <error>message</error>
func ErrorDocument(message string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateElement(TagError).SetText(message)
	AddNamespaces(doc)
	return doc
}
