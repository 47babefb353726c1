// Package action dispatches a lang.Action to the backend that owns its
// actor facet and folds the result into the current World, the way
// pkg/kernel/engine's step-dispatch switch routes each step to its
// executor before updating run state.
package action

import (
	"context"
	"fmt"
	"time"

	"github.com/choreo-lang/choreo/pkg/lang"
	"github.com/choreo-lang/choreo/pkg/value"
	"github.com/choreo-lang/choreo/pkg/world"
)

// Terminal is the persistent-shell facet backing Terminal run actions.
type Terminal interface {
	Run(ctx context.Context, command string) (world.TerminalResult, error)
}

// Web is the HTTP-client facet backing Web actions.
type Web interface {
	SetHeader(key, value string)
	ClearHeader(key string)
	ClearHeaders()
	SetCookie(key, value string)
	ClearCookie(key string)
	ClearCookies()
	Get(ctx context.Context, url string) (world.WebResponse, error)
	Delete(ctx context.Context, url string) (world.WebResponse, error)
	Post(ctx context.Context, url, body string) (world.WebResponse, error)
	Put(ctx context.Context, url, body string) (world.WebResponse, error)
	Patch(ctx context.Context, url, body string) (world.WebResponse, error)
}

// FileSystem is the file/dir facet backing FileSystem actions.
type FileSystem interface {
	CreateDir(path string) error
	CreateFile(path, content string) error
	DeleteDir(path string) error
	DeleteFile(path string) error
	ReadFile(path string) (string, error)
}

// System is the pause/log/uuid/timestamp facet backing System actions.
type System interface {
	Pause(d time.Duration)
	Log(msg string)
	UUID() string
	Timestamp() string
}

// Backends bundles the four facets a scenario's actions dispatch into. One
// set is created per scenario so parallel scenarios never share a PTY or
// HTTP client.
type Backends struct {
	Terminal   Terminal
	Web        Web
	FileSystem FileSystem
	System     System
}

// Dispatch substitutes ${...} references in the action's string fields,
// invokes the owning backend, and folds the outcome into w. Captures are
// applied immediately (unlike condition captures, which wait for their
// owning block to pass).
func Dispatch(ctx context.Context, a *lang.Action, w *world.World, b Backends) error {
	arg1, err := w.Vars.Substitute(a.Arg1)
	if err != nil {
		return err
	}
	arg2, err := w.Vars.Substitute(a.Arg2)
	if err != nil {
		return err
	}

	switch a.Kind {
	case lang.ActRun:
		res, err := b.Terminal.Run(ctx, arg1)
		if err != nil {
			return err
		}
		w.Terminal = res
		return nil

	case lang.ActPause:
		b.System.Pause(time.Duration(a.DurationSec * float64(time.Second)))
		return nil
	case lang.ActLog:
		b.System.Log(arg1)
		return nil
	case lang.ActUuid:
		w.Vars.Set(a.CaptureAs, stringValue(b.System.UUID()))
		return nil
	case lang.ActTimestamp:
		w.Vars.Set(a.CaptureAs, stringValue(b.System.Timestamp()))
		return nil

	case lang.ActCreateDir:
		return b.FileSystem.CreateDir(arg1)
	case lang.ActCreateFile:
		return b.FileSystem.CreateFile(arg1, arg2)
	case lang.ActDeleteDir:
		return b.FileSystem.DeleteDir(arg1)
	case lang.ActDeleteFile:
		return b.FileSystem.DeleteFile(arg1)
	case lang.ActReadFile:
		content, err := b.FileSystem.ReadFile(arg1)
		if err != nil {
			return err
		}
		w.Vars.Set(a.CaptureAs, stringValue(content))
		return nil

	case lang.ActSetHeader:
		b.Web.SetHeader(arg1, arg2)
		w.Web = syntheticWebResponse()
		return nil
	case lang.ActClearHeader:
		b.Web.ClearHeader(arg1)
		w.Web = syntheticWebResponse()
		return nil
	case lang.ActClearHeaders:
		b.Web.ClearHeaders()
		w.Web = syntheticWebResponse()
		return nil
	case lang.ActSetCookie:
		b.Web.SetCookie(arg1, arg2)
		w.Web = syntheticWebResponse()
		return nil
	case lang.ActClearCookie:
		b.Web.ClearCookie(arg1)
		w.Web = syntheticWebResponse()
		return nil
	case lang.ActClearCookies:
		b.Web.ClearCookies()
		w.Web = syntheticWebResponse()
		return nil
	case lang.ActHTTPGet:
		resp, err := b.Web.Get(ctx, arg1)
		if err != nil {
			return err
		}
		w.Web = resp
		return nil
	case lang.ActHTTPDelete:
		resp, err := b.Web.Delete(ctx, arg1)
		if err != nil {
			return err
		}
		w.Web = resp
		return nil
	case lang.ActHTTPPost:
		resp, err := b.Web.Post(ctx, arg1, arg2)
		if err != nil {
			return err
		}
		w.Web = resp
		return nil
	case lang.ActHTTPPut:
		resp, err := b.Web.Put(ctx, arg1, arg2)
		if err != nil {
			return err
		}
		w.Web = resp
		return nil
	case lang.ActHTTPPatch:
		resp, err := b.Web.Patch(ctx, arg1, arg2)
		if err != nil {
			return err
		}
		w.Web = resp
		return nil

	default:
		return fmt.Errorf("action kind %q has no dispatcher", a.Kind)
	}
}

func stringValue(s string) value.Value { return value.String(s) }

// syntheticWebResponse is recorded after header/cookie actions, which are
// not themselves requests but still need to satisfy a following
// response_status_is-style condition, matching the reference backend's
// "isn't a request but need to return a response" bookkeeping.
func syntheticWebResponse() world.WebResponse {
	return world.WebResponse{Status: 200, Body: []byte("choreo"), Have: true}
}
