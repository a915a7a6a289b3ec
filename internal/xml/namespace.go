package xml

import "github.com/beevik/etree"

// Namespace is the XML namespace of occurrence documents
const Namespace = "urn:librecur:occurrences"

// Tag names used in occurrence documents
const (
	TagOccurrences = "occurrences"
	TagSummary     = "summary"
	TagRRule       = "rrule"
	TagOccurrence  = "occurrence"
	TagError       = "error"

	AttrSchedule = "schedule"
	AttrTitle    = "title"
	AttrCount    = "count"
	AttrDate     = "date"
	AttrWeekday  = "weekday"
)

// AddNamespaces declares the occurrence namespace on the document root
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns", Namespace)
}
