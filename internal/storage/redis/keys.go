package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/tapearn/internal/model"
)

const defaultKeyPrefix = "tapearn"

// keys builds the key layout under one prefix:
//
//	<prefix>:player:<id>            JSON PlayerState
//	<prefix>:idx:username:<lower>   player id
//	<prefix>:idx:players            SET of player ids
type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return keys{prefix: prefix}
}

func (k keys) player(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", k.prefix, id)
}

// username keys are lower-cased so lookups are case-insensitive
func (k keys) username(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", k.prefix, strings.ToLower(username))
}

func (k keys) players() string {
	return k.prefix + ":idx:players"
}
