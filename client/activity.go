package client

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

type ActivityType int

const (
	Playing   ActivityType = 0
	Listening ActivityType = 2
	Watching  ActivityType = 3
	Competing ActivityType = 5
)

const maxButtons = 2

type Button struct {
	Label string `json:"label"`
	Url   string `json:"url"`
}

type Party struct {
	ID   string `json:"id,omitempty"`
	Size []int  `json:"size,omitempty"` // [current, max]
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// Secrets enable the join and spectate buttons on a profile.
type Secrets struct {
	Join     string `json:"join,omitempty"`
	Spectate string `json:"spectate,omitempty"`
	Match    string `json:"match,omitempty"`
}

type Activity struct {
	Type       ActivityType `json:"type"`
	State      string       `json:"state,omitempty"`
	Details    string       `json:"details,omitempty"`
	Timestamps *Timestamps  `json:"timestamps,omitempty"`
	Assets     *Assets      `json:"assets,omitempty"`
	Party      *Party       `json:"party,omitempty"`
	Secrets    *Secrets     `json:"secrets,omitempty"`
	Instance   bool         `json:"instance,omitempty"`
	Buttons    []Button     `json:"buttons,omitempty"`
}

func (a Activity) IsEmpty() bool {
	return a.State == "" &&
		a.Details == "" &&
		a.Timestamps == nil &&
		a.Assets == nil &&
		a.Party == nil &&
		a.Secrets == nil &&
		len(a.Buttons) == 0
}

// normalize returns a copy Discord will accept: invalid buttons and empty
// sub-objects are dropped, a sized party gets an id, and asset hover text
// falls back to the state line.
func (a Activity) normalize() Activity {
	out := a

	out.Buttons = nil
	for _, b := range a.Buttons {
		label := strings.TrimSpace(b.Label)
		url := strings.TrimSpace(b.Url)
		if label == "" || url == "" || !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
			continue
		}
		out.Buttons = append(out.Buttons, Button{Label: label, Url: url})
		if len(out.Buttons) == maxButtons {
			break
		}
	}

	if a.Timestamps != nil && a.Timestamps.Start == 0 && a.Timestamps.End == 0 {
		out.Timestamps = nil
	}

	if a.Party != nil {
		if len(a.Party.Size) != 2 {
			out.Party = nil
		} else {
			p := *a.Party
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			out.Party = &p
		}
	}

	if a.Secrets != nil && *a.Secrets == (Secrets{}) {
		out.Secrets = nil
	}

	if a.Assets != nil {
		as := *a.Assets
		if as.LargeImage != "" && as.LargeText == "" {
			as.LargeText = a.State
		}
		if as.SmallImage != "" && as.SmallText == "" {
			as.SmallText = a.State
		}
		if as == (Assets{}) {
			out.Assets = nil
		} else {
			out.Assets = &as
		}
	}
	return out
}

// SetActivityArgs is the SET_ACTIVITY argument; a nil Activity clears it.
type SetActivityArgs struct {
	Pid      int       `json:"pid"`
	Activity *Activity `json:"activity,omitempty"`
}

func newSetActivityArgs(act *Activity) SetActivityArgs {
	return SetActivityArgs{Pid: os.Getpid(), Activity: act}
}
