package httpapi

// whitelistNameRegex and addressRegex mirror spec §6's validation constants;
// they are checked in handler.go (validateWhitelistName, getMerkleProof).
// The length bounds are enforced via go-playground/validator struct tags.
const (
	whitelistNameRegex = `^[A-Za-z][0-9A-Za-z_-]*$`
	addressRegex       = `^(0x|0X)[0-9A-Fa-f]{40}$`
)

// UploadWhitelistRequest is the body of POST /UploadWhitelist.
type UploadWhitelistRequest struct {
	WhitelistName          string `json:"whitelistName" validate:"required,min=1,max=1024"`
	WhitelistBase64Content string `json:"whitelistBase64Content" validate:"required,min=4,max=10485760"`
}

// WhitelistNameRequest is the body of DELETE /Whitelist, POST
// /CreateMerkleTree, and DELETE /MerkleTree, all of which take only a
// whitelist name.
type WhitelistNameRequest struct {
	WhitelistName string `json:"whitelistName" validate:"required,min=1,max=1024"`
}
