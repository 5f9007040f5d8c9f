package api

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tejxsmore/vapordb-go/internal/engine"
)

// commandRequest is the wire shape of POST /cmd: one flat JSON object whose
// Cmd field selects which other fields are meaningful.
type commandRequest struct {
	Cmd   string `json:"cmd" binding:"required"`
	Key   string `json:"key" binding:"required"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`

	Member string `json:"member,omitempty"`

	Start *uint `json:"start,omitempty"`
	End   *uint `json:"end,omitempty"`

	TTLSecs *int64 `json:"ttl_secs,omitempty" validate:"omitempty,gte=0"`
}

var validate = validator.New()

// toCommand maps req onto the engine.Command variant named by req.Cmd. The
// caller validates req before calling this. setwithexpiration is handled
// separately by the caller since engine.Engine exposes it as
// SetWithExpiration, not a Command.
func (req commandRequest) toCommand() (engine.Command, error) {
	switch req.Cmd {
	case "get":
		return engine.GetCommand{Key: req.Key}, nil
	case "set":
		return engine.SetCommand{Key: req.Key, Value: req.Value}, nil
	case "del":
		return engine.DelCommand{Key: req.Key}, nil
	case "hset":
		return engine.HSetCommand{Key: req.Key, Field: req.Field, Value: req.Value}, nil
	case "hget":
		return engine.HGetCommand{Key: req.Key, Field: req.Field}, nil
	case "hdel":
		return engine.HDelCommand{Key: req.Key, Field: req.Field}, nil
	case "lpush":
		return engine.LPushCommand{Key: req.Key, Value: req.Value}, nil
	case "rpush":
		return engine.RPushCommand{Key: req.Key, Value: req.Value}, nil
	case "lpop":
		return engine.LPopCommand{Key: req.Key}, nil
	case "rpop":
		return engine.RPopCommand{Key: req.Key}, nil
	case "lrange":
		var start, end uint
		if req.Start != nil {
			start = *req.Start
		}
		if req.End != nil {
			end = *req.End
		}
		return engine.LRangeCommand{Key: req.Key, Start: start, End: end}, nil
	case "sadd":
		return engine.SAddCommand{Key: req.Key, Member: req.Member}, nil
	case "srem":
		return engine.SRemCommand{Key: req.Key, Member: req.Member}, nil
	case "smembers":
		return engine.SMembersCommand{Key: req.Key}, nil
	default:
		return nil, fmt.Errorf("unrecognized cmd %q", req.Cmd)
	}
}

func (req commandRequest) ttl() time.Duration {
	if req.TTLSecs == nil {
		return 0
	}
	return time.Duration(*req.TTLSecs) * time.Second
}
