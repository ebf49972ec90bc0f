package config

type Query struct {
	APIURL    string `env:"POWERBI_API_URL" envDefault:"https://api.powerbi.com/v1.0/myorg"`
	DatasetID string `env:"POWERBI_DATASET_ID" envDefault:"c2cdc646-fdc2-45cb-ac18-6910bb2dcd6f"`
}

var _ QueryConfig = Query{}

func (q Query) GetAPIURL() string {
	return q.APIURL
}

func (q Query) GetDatasetID() string {
	return q.DatasetID
}
