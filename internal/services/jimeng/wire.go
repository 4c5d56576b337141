package jimeng

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// successRet is the API-level success code carried in every response body.
const successRet = "0"

// History record states reported by get_history_by_ids.
const (
	statusGenerating = 20
	statusDone       = 50
)

// Sizes probed in cover_url_map when no large image is present, best first.
var coverSizePriority = []string{"2400", "1080", "900", "720"}

type submitResponse struct {
	Ret    string `json:"ret"`
	ErrMsg string `json:"errmsg"`
	Data   struct {
		AigcData struct {
			HistoryRecordID string `json:"history_record_id"`
		} `json:"aigc_data"`
	} `json:"data"`
}

type historyResponse struct {
	Ret    string                   `json:"ret"`
	ErrMsg string                   `json:"errmsg"`
	Data   map[string]historyRecord `json:"data"`
}

type historyRecord struct {
	Status   int           `json:"status"`
	ItemList []historyItem `json:"item_list"`
}

type historyItem struct {
	Image struct {
		LargeImages []struct {
			ImageURL string `json:"image_url"`
		} `json:"large_images"`
	} `json:"image"`
	CommonAttr struct {
		CoverURLMap map[string]string `json:"cover_url_map"`
	} `json:"common_attr"`
}

// imageURLs extracts the best available URL for each generated item,
// preferring the full-size large image over the cover map.
func (r historyRecord) imageURLs() []string {
	var urls []string
	for _, item := range r.ItemList {
		if len(item.Image.LargeImages) > 0 && item.Image.LargeImages[0].ImageURL != "" {
			urls = append(urls, item.Image.LargeImages[0].ImageURL)
			continue
		}
		for _, size := range coverSizePriority {
			if url, ok := item.CommonAttr.CoverURLMap[size]; ok && url != "" {
				urls = append(urls, url)
				break
			}
		}
	}
	return urls
}

// ratioValue is the provider's numeric code for an aspect ratio id.
func ratioValue(ratio string) int {
	switch ratio {
	case "4:3":
		return 4
	case "3:4", "9:16":
		return 3
	case "1:1":
		return 1
	case "16:9":
		return 16
	default:
		return 1
	}
}

// The frontend submits generation requests as a serialized "draft" document
// carrying one image component. Field values follow what the web client
// sends; the provider rejects drafts below min_version.
type draftDocument struct {
	Type            string           `json:"type"`
	ID              string           `json:"id"`
	MinVersion      string           `json:"min_version"`
	MinFeatures     []string         `json:"min_features"`
	IsFromTSN       bool             `json:"is_from_tsn"`
	Version         string           `json:"version"`
	MainComponentID string           `json:"main_component_id"`
	ComponentList   []draftComponent `json:"component_list"`
}

type draftComponent struct {
	Type         string          `json:"type"`
	ID           string          `json:"id"`
	MinVersion   string          `json:"min_version"`
	GenerateType string          `json:"generate_type"`
	AigcMode     string          `json:"aigc_mode"`
	Abilities    draftAbilities  `json:"abilities"`
}

type draftAbilities struct {
	Type     string        `json:"type"`
	ID       string        `json:"id"`
	Generate draftGenerate `json:"generate"`
}

type draftGenerate struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	CoreParam     draftCoreParam `json:"core_param"`
	HistoryOption draftIdentity  `json:"history_option"`
}

type draftCoreParam struct {
	Type           string          `json:"type"`
	ID             string          `json:"id"`
	Model          string          `json:"model"`
	Prompt         string          `json:"prompt"`
	NegativePrompt string          `json:"negative_prompt"`
	Seed           int             `json:"seed"`
	SampleStrength float64         `json:"sample_strength"`
	ImageRatio     int             `json:"image_ratio"`
	LargeImageInfo draftImageInfo  `json:"large_image_info"`
}

type draftIdentity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type draftImageInfo struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type submitPayload struct {
	Extend         submitExtend   `json:"extend"`
	SubmitID       string         `json:"submit_id"`
	MetricsExtra   string         `json:"metrics_extra"`
	DraftContent   string         `json:"draft_content"`
	HTTPCommonInfo httpCommonInfo `json:"http_common_info"`
}

type submitExtend struct {
	RootModel  string `json:"root_model"`
	TemplateID string `json:"template_id"`
}

type httpCommonInfo struct {
	AID int `json:"aid"`
}

func buildSubmitPayload(req SubmitRequest, seed int, aid int) (submitPayload, error) {
	componentID := uuid.NewString()
	draft := draftDocument{
		Type:            "draft",
		ID:              uuid.NewString(),
		MinVersion:      "3.0.2",
		MinFeatures:     []string{},
		IsFromTSN:       true,
		Version:         "3.0.9",
		MainComponentID: componentID,
		ComponentList: []draftComponent{{
			Type:         "image_base_component",
			ID:           componentID,
			MinVersion:   "3.0.2",
			GenerateType: "generate",
			AigcMode:     "workbench",
			Abilities: draftAbilities{
				ID: uuid.NewString(),
				Generate: draftGenerate{
					ID: uuid.NewString(),
					CoreParam: draftCoreParam{
						ID:             uuid.NewString(),
						Model:          req.ModelKey,
						Prompt:         req.Prompt,
						Seed:           seed,
						SampleStrength: 0.5,
						ImageRatio:     ratioValue(req.Ratio),
						LargeImageInfo: draftImageInfo{
							ID:     uuid.NewString(),
							Height: req.Height,
							Width:  req.Width,
						},
					},
					HistoryOption: draftIdentity{ID: uuid.NewString()},
				},
			},
		}},
	}

	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return submitPayload{}, fmt.Errorf("marshal draft: %w", err)
	}

	metrics := map[string]any{
		"templateId":       "",
		"generateCount":    1,
		"promptSource":     "custom",
		"templateSource":   "",
		"lastRequestId":    "",
		"originRequestId":  "",
		"originSubmitId":   "",
		"isDefaultSeed":    1,
		"originTemplateId": "",
		"imageNameMapping": map[string]string{},
		"isUseAiGenPrompt": false,
		"batchNumber":      1,
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return submitPayload{}, fmt.Errorf("marshal metrics: %w", err)
	}

	return submitPayload{
		Extend:         submitExtend{RootModel: req.ModelKey},
		SubmitID:       uuid.NewString(),
		MetricsExtra:   string(metricsJSON),
		DraftContent:   string(draftJSON),
		HTTPCommonInfo: httpCommonInfo{AID: aid},
	}, nil
}

func buildBabiParam(modelKey string) (string, error) {
	param := map[string]string{
		"scenario":                "image_video_generation",
		"feature_key":             "aigc_to_image",
		"feature_entrance":        "to_image",
		"feature_entrance_detail": "to_image-" + modelKey,
	}
	data, err := json.Marshal(param)
	if err != nil {
		return "", fmt.Errorf("marshal babi_param: %w", err)
	}
	return string(data), nil
}

type historyRequest struct {
	HistoryIDs     []string       `json:"history_ids"`
	ImageInfo      imageInfo      `json:"image_info"`
	HTTPCommonInfo httpCommonInfo `json:"http_common_info"`
}

type imageInfo struct {
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Format         string       `json:"format"`
	ImageSceneList []imageScene `json:"image_scene_list"`
}

type imageScene struct {
	Scene   string `json:"scene"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	UniqKey string `json:"uniq_key"`
	Format  string `json:"format"`
}

func buildHistoryRequest(historyID string, aid int) historyRequest {
	return historyRequest{
		HistoryIDs: []string{historyID},
		ImageInfo: imageInfo{
			Width:  2048,
			Height: 2048,
			Format: "webp",
			ImageSceneList: []imageScene{
				{Scene: "normal", Width: 2400, Height: 2400, UniqKey: "2400", Format: "webp"},
				{Scene: "normal", Width: 1080, Height: 1080, UniqKey: "1080", Format: "webp"},
			},
		},
		HTTPCommonInfo: httpCommonInfo{AID: aid},
	}
}
