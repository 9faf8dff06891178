package orthanc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/radiq/radiq-backend/internal/platform/logger"
)

// DICOM tag keys in QIDO-RS responses.
const (
	tagStudyInstanceUID  = "0020000D"
	tagSeriesInstanceUID = "0020000E"
	tagSOPInstanceUID    = "00080018"
	tagInstanceNumber    = "00200013"
)

// Client talks DICOMweb (QIDO-RS) to the imaging archive. The engine only
// reads identifiers and grouping metadata; pixel data is fetched by the
// viewer straight from the archive's DICOMweb base URL.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *logger.Logger
}

func NewClient(baseURL, username, password string, log *logger.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log.With("client", "OrthancClient"),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Instance is one archive instance listing with the identifiers the
// catalog needs.
type Instance struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
	InstanceNumber    *int
	Raw               map[string]json.RawMessage
}

type SeriesRef struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
}

func (c *Client) ListStudies(ctx context.Context) ([]string, error) {
	var rows []map[string]json.RawMessage
	if err := c.get(ctx, "/studies?includefield="+tagStudyInstanceUID, &rows); err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(rows))
	for _, row := range rows {
		if uid := tagString(row, tagStudyInstanceUID); uid != "" {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

func (c *Client) ListSeries(ctx context.Context, studyUID string) ([]SeriesRef, error) {
	path := fmt.Sprintf("/studies/%s/series?includefield=%s", url.PathEscape(studyUID), tagSeriesInstanceUID)
	var rows []map[string]json.RawMessage
	if err := c.get(ctx, path, &rows); err != nil {
		return nil, err
	}
	refs := make([]SeriesRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, SeriesRef{
			StudyInstanceUID:  studyUID,
			SeriesInstanceUID: tagString(row, tagSeriesInstanceUID),
		})
	}
	return refs, nil
}

func (c *Client) ListInstances(ctx context.Context, studyUID, seriesUID string) ([]Instance, error) {
	path := fmt.Sprintf("/studies/%s/series/%s/instances?includefield=%s",
		url.PathEscape(studyUID), url.PathEscape(seriesUID), tagSOPInstanceUID)
	var rows []map[string]json.RawMessage
	if err := c.get(ctx, path, &rows); err != nil {
		return nil, err
	}
	instances := make([]Instance, 0, len(rows))
	for _, row := range rows {
		inst := Instance{
			StudyInstanceUID:  studyUID,
			SeriesInstanceUID: seriesUID,
			SOPInstanceUID:    tagString(row, tagSOPInstanceUID),
			Raw:               row,
		}
		if num := tagString(row, tagInstanceNumber); num != "" {
			var n int
			if _, err := fmt.Sscanf(num, "%d", &n); err == nil {
				inst.InstanceNumber = &n
			}
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/dicom+json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return nil
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("orthanc DICOMweb error %d: %s", res.StatusCode, string(body))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// tagString pulls the first Value entry of a DICOM JSON attribute.
func tagString(row map[string]json.RawMessage, tag string) string {
	raw, ok := row[tag]
	if !ok {
		return ""
	}
	var attr struct {
		Value []interface{} `json:"Value"`
	}
	if err := json.Unmarshal(raw, &attr); err != nil || len(attr.Value) == 0 {
		return ""
	}
	switch v := attr.Value[0].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
