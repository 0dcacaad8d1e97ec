package webapi

import (
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"
)

// normalizeBlocks assigns "block_<index>" to any block missing a block_id,
// then decodes the result into slack-go's discriminated Block union so the
// rest of the codebase works with typed blocks rather than raw maps.
func normalizeBlocks(raw interface{}) ([]slack.Block, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("blocks must be an array")
	}

	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if _, has := m["block_id"]; !has {
			m["block_id"] = fmt.Sprintf("block_%d", i)
		}
		items[i] = m
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var blocks slack.Blocks
	if err := blocks.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return blocks.BlockSet, nil
}
