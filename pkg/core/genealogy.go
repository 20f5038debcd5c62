package core

// NotApplicable is the default sentinel for genealogy fields with no value.
const NotApplicable = "NA"

// Languoid holds the classification attributes of one glottocode.
type Languoid struct {
	ID        string
	Name      string
	ParentID  string
	FamilyID  string
	Macroarea string
	Latitude  string
	Longitude string
	Countries []string
}

// TreeNode is the parent-pointer view of a languoid used for ancestry walks.
type TreeNode struct {
	Name     string
	ParentID string
}
