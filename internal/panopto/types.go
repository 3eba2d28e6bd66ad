package panopto

import "encoding/json"

// envelope is the WCF wrapper Data.svc puts around every JSON response.
type envelope struct {
	D json.RawMessage `json:"d"`
}

// SessionList is one page of a GetSessions response, unwrapped from the
// envelope.
type SessionList struct {
	TotalNumber int64       `json:"TotalNumber"`
	Results     []Session   `json:"Results"`
	Subfolders  []Subfolder `json:"Subfolders"`
}

// Session is one recorded session as listed by GetSessions.
type Session struct {
	DeliveryID  string `json:"DeliveryID"`
	FolderID    string `json:"FolderID"`
	SessionID   string `json:"SessionID"`
	SessionName string `json:"SessionName"`
	StartTime   string `json:"StartTime"`
	IosVideoURL string `json:"IosVideoUrl"`
}

// Subfolder is a child folder reference. GetSessions repeats the same
// subfolder list on every page.
type Subfolder struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`
}

// DeliveryInfo is the viewer metadata for one session. Unlike the Data.svc
// responses it arrives without an envelope.
type DeliveryInfo struct {
	SessionID    string `json:"SessionId"`
	ViewerFileID string `json:"ViewerFileId"`
}

// sessionQuery is the GetSessions request payload. The field set matches
// what the Panopto web client sends; the service rejects partial queries.
type sessionQuery struct {
	QueryParameters queryParameters `json:"queryParameters"`
}

type queryParameters struct {
	Query                     *string `json:"query"`
	SortColumn                int     `json:"sortColumn"`
	SortAscending             bool    `json:"sortAscending"`
	MaxResults                int     `json:"maxResults"`
	Page                      int     `json:"page"`
	StartDate                 *string `json:"startDate"`
	EndDate                   *string `json:"endDate"`
	FolderID                  string  `json:"folderID"`
	Bookmarked                bool    `json:"bookmarked"`
	GetFolderData             bool    `json:"getFolderData"`
	IsSharedWithMe            bool    `json:"isSharedWithMe"`
	IsSubscriptionsPage       bool    `json:"isSubscriptionsPage"`
	IncludeArchived           bool    `json:"includeArchived"`
	IncludeArchivedStateCount bool    `json:"includeArchivedStateCount"`
	SessionListOnlyArchived   bool    `json:"sessionListOnlyArchived"`
	IncludePlaylists          bool    `json:"includePlaylists"`
}

func newSessionQuery(folderID string, page int) sessionQuery {
	return sessionQuery{QueryParameters: queryParameters{
		SortColumn:                1,
		MaxResults:                100,
		Page:                      page,
		FolderID:                  folderID,
		GetFolderData:             true,
		IncludeArchived:           true,
		IncludeArchivedStateCount: true,
		IncludePlaylists:          true,
	}}
}

type folderQuery struct {
	FolderID string `json:"folderID"`
}
