package dto

type ProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DeleteAccountRequest names a successor admin per team ID for teams where the
// caller is the only admin.
type DeleteAccountRequest struct {
	Successors map[string]string `json:"successors" binding:"dive,keys,required,excludes=/,endkeys,required,excludes=/"`
}
