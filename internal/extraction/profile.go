package extraction

import _ "embed"

//go:embed profiles/bol.txt
var bolInstructions string

// Profile is the instruction set sent with a document.
type Profile struct {
	Name         string
	Instructions string
}

// BOLProfile instructs the service to return bill of lading fields.
var BOLProfile = Profile{Name: "bol_v1", Instructions: bolInstructions}
