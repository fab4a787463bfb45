package model

type TicketRequest struct {
	Summary         string
	Description     string
	ReporterEmail   string
	ProjectKey      string
	RequestTypeName string
}

type TicketResult struct {
	IssueKey  string
	TicketURL string
}

// Complete reports whether both the key and the URL are present.
func (r *TicketResult) Complete() bool {
	return r != nil && r.IssueKey != "" && r.TicketURL != ""
}
