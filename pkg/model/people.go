package model

// Person is a natural person referenced by affiliations and users.
type Person struct {
	ID    int64
	Name  string
	Email string
}

// User wraps a Person with account identity. Artifact ownership points here.
type User struct {
	ID       int64
	PersonID int64

	Person *Person
}

// Organization is an institution a person may be affiliated with.
type Organization struct {
	ID      int64
	Name    string
	Type    string
	URL     string
	Country string
}

// Affiliation binds a person to an organization (org may be absent).
type Affiliation struct {
	ID       int64
	PersonID int64
	OrgID    int64

	Person *Person
	Org    *Organization
}

// License is a software/data license attached to artifacts.
type License struct {
	ID        int64
	ShortName string
	LongName  string
	URL       string
	Verified  bool
}
