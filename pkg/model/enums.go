package model

// ArtifactType classifies an artifact by what it is, not where it came from.
type ArtifactType string

const (
	TypePublication  ArtifactType = "publication"
	TypePresentation ArtifactType = "presentation"
	TypeDataset      ArtifactType = "dataset"
	TypeSoftware     ArtifactType = "software"
	TypeOther        ArtifactType = "other"
)

// ArtifactTypes is the closed set of persistable artifact types.
var ArtifactTypes = []string{
	string(TypePublication), string(TypePresentation), string(TypeDataset),
	string(TypeSoftware), string(TypeOther),
}

// ValidArtifactType reports whether s is a member of ArtifactTypes.
func ValidArtifactType(s string) bool {
	for _, t := range ArtifactTypes {
		if t == s {
			return true
		}
	}
	return false
}

// Relation is the typed edge label between two artifacts (or an artifact and
// a candidate). The vocabulary is fixed; edges with labels outside it are
// rejected before they reach the store.
type Relation string

const (
	RelCites       Relation = "cites"
	RelSupplements Relation = "supplements"
	RelExtends     Relation = "extends"
	RelUses        Relation = "uses"
	RelDescribes   Relation = "describes"
	RelRequires    Relation = "requires"
	RelProcesses   Relation = "processes"
	RelProduces    Relation = "produces"
	RelIndexes     Relation = "indexes"
)

// Relations is the closed relation vocabulary.
var Relations = []string{
	string(RelCites), string(RelSupplements), string(RelExtends),
	string(RelUses), string(RelDescribes), string(RelRequires),
	string(RelProcesses), string(RelProduces), string(RelIndexes),
}

// Valid reports whether r is in the relation vocabulary.
func (r Relation) Valid() bool {
	for _, v := range Relations {
		if v == string(r) {
			return true
		}
	}
	return false
}

// AffiliationRole labels an artifact/affiliation edge.
type AffiliationRole string

const (
	RoleAuthor        AffiliationRole = "Author"
	RoleContactPerson AffiliationRole = "ContactPerson"
	RoleOther         AffiliationRole = "Other"
)

// AffiliationRoles is the closed role set.
var AffiliationRoles = []string{
	string(RoleAuthor), string(RoleContactPerson), string(RoleOther),
}

// OrganizationTypes is the closed organization type set.
var OrganizationTypes = []string{
	"Institution", "Company", "Institute", "ResearchGroup", "Sponsor", "Other",
}

// GitFileType is the filetype marker that routes an ArtifactFile to the git
// retrieval strategy instead of plain HTTP.
const GitFileType = "application/x-git"
