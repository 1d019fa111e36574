package models

type EnforcementRecord struct {
	RecallNumber         string `json:"recall_number"`
	Classification       string `json:"classification"`
	ReasonForRecall      string `json:"reason_for_recall"`
	ProductDescription   string `json:"product_description"`
	RecallingFirm        string `json:"recalling_firm"`
	RecallInitiationDate string `json:"recall_initiation_date"`
	ReportDate           string `json:"report_date"`
	Status               string `json:"status"`
}

type FoodRecord struct {
	FdcID         int64  `json:"fdcId"`
	Description   string `json:"description"`
	DataType      string `json:"dataType"`
	BrandOwner    string `json:"brandOwner"`
	Ingredients   string `json:"ingredients"`
	PublishedDate string `json:"publishedDate"`
}

type ChemicalRecord struct {
	DTXSID        string `json:"dtxsid"`
	PreferredName string `json:"preferredName"`
	CASRN         string `json:"casrn"`
}

// KeywordRequest is the body sent to the keyword extraction service.
type KeywordRequest struct {
	ProductName        string `json:"product_name"`
	ProductDescription string `json:"product_description"`
	TopK               int    `json:"top_k"`
	Method             string `json:"method"`
}

// KeywordResponse keeps Keywords as a pointer so a JSON null is told apart
// from an empty list.
type KeywordResponse struct {
	Keywords   *[]string `json:"keywords"`
	MethodUsed string    `json:"method_used"`
}
