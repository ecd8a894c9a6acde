package export

import "strings"

const (
	blankSubject = "FORM"
	blankType    = "Document"
)

var unsafeNameChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\"", "", "'", "")

// FileName builds "<docType>_<Subject_With_Underscores>.pdf". A blank
// subject becomes FORM.
func FileName(docType, subject string) string {
	docType = strings.Join(strings.Fields(docType), "_")
	if docType == "" {
		docType = blankType
	}
	name := strings.Join(strings.Fields(subject), "_")
	if name == "" {
		name = blankSubject
	}
	return unsafeNameChars.Replace(docType + "_" + name + ".pdf")
}
