package clients

import "time"

type clientRequest struct {
	Name              string   `json:"name"`
	RIF               string   `json:"rif"`
	Address           string   `json:"address"`
	Contact           string   `json:"contact"`
	RequiredDocuments []string `json:"requiredDocuments"`
}

func (r clientRequest) input() Input {
	return Input{
		Name:              r.Name,
		RIF:               r.RIF,
		Address:           r.Address,
		Contact:           r.Contact,
		RequiredDocuments: r.RequiredDocuments,
	}
}

// ClientResponse is the outward-facing representation of a client.
type ClientResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	RIF               string     `json:"rif"`
	Address           string     `json:"address,omitempty"`
	Contact           string     `json:"contact,omitempty"`
	RequiredDocuments []string   `json:"requiredDocuments"`
	LastDocumentDate  *time.Time `json:"lastDocumentDate"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func toResponse(c Client) ClientResponse {
	required := c.RequiredDocuments
	if required == nil {
		required = []string{}
	}
	return ClientResponse{
		ID:                c.ID,
		Name:              c.Name,
		RIF:               c.RIF,
		Address:           c.Address,
		Contact:           c.Contact,
		RequiredDocuments: required,
		LastDocumentDate:  c.LastDocumentDate,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}
