package facetec

// ResponseBase is the envelope shared by every server response.
type ResponseBase struct {
	Success      bool      `json:"success"`
	WasProcessed bool      `json:"wasProcessed"`
	Error        bool      `json:"error"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CallData     *CallData `json:"callData,omitempty"`
}

// CallData identifies a call in the server's own logs.
type CallData struct {
	TID string `json:"tid"`
}

// FaceScan is the liveness capture produced by the device SDK.
type FaceScan struct {
	FaceScan                  string `json:"faceScan"`
	AuditTrailImage           string `json:"auditTrailImage"`
	LowQualityAuditTrailImage string `json:"lowQualityAuditTrailImage"`
}

type Enrollment3DRequest struct {
	ExternalDatabaseRefID string `json:"externalDatabaseRefID"`
	FaceScan
}

type Enrollment3DResponse struct {
	ResponseBase
	ExternalDatabaseRefID  string                  `json:"externalDatabaseRefID"`
	FaceScanSecurityChecks *FaceScanSecurityChecks `json:"faceScanSecurityChecks,omitempty"`
}

type FaceScanSecurityChecks struct {
	AuditTrailVerificationCheckSucceeded bool `json:"auditTrailVerificationCheckSucceeded"`
	FaceScanLivenessCheckSucceeded       bool `json:"faceScanLivenessCheckSucceeded"`
	ReplayCheckSucceeded                 bool `json:"replayCheckSucceeded"`
	SessionTokenCheckSucceeded           bool `json:"sessionTokenCheckSucceeded"`
}

type DBSearchRequest struct {
	ExternalDatabaseRefID string `json:"externalDatabaseRefID"`
	GroupName             string `json:"groupName"`
	MinMatchLevel         int    `json:"minMatchLevel"`
}

type DBSearchResult struct {
	Identifier string `json:"identifier"`
	MatchLevel int    `json:"matchLevel"`
}

type DBSearchResponse struct {
	ResponseBase
	Results []DBSearchResult `json:"results"`
}

type DBEnrollRequest struct {
	ExternalDatabaseRefID string `json:"externalDatabaseRefID"`
	GroupName             string `json:"groupName"`
}

type SessionTokenResponse struct {
	ResponseBase
	SessionToken string `json:"sessionToken"`
}

// DeviceSDKParams configure the scanning SDK on the client device.
type DeviceSDKParams struct {
	DeviceKeyIdentifier        string `json:"device_key_identifier"`
	PublicFaceMapEncryptionKey string `json:"public_face_map_encryption_key"`
	ProductionKey              string `json:"production_key,omitempty"`
}
