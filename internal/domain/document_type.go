package domain

type DocumentType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
