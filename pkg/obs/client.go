// Package obs speaks the obs-websocket v5 control protocol to a running
// OBS Studio instance. Only the handful of requests the scene automation
// needs are exposed; everything else goes through request directly.
package obs

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sfxd/pkg/config"
)

const mediaActionRestart = "OBS_WEBSOCKET_MEDIA_INPUT_ACTION_RESTART"

// Client is a synchronous obs-websocket v5 client. A single request is in
// flight at a time; concurrent callers serialize on an internal mutex.
type Client struct {
	cfg config.OBSConfig

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(cfg config.OBSConfig) *Client {
	return &Client{cfg: cfg}
}

// Connected reports whether an identified session is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials OBS and completes the Hello/Identify handshake. It is a
// no-op when a session is already open.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	url := fmt.Sprintf("ws://%s:%d", c.cfg.Host, c.cfg.Port)
	dialer := websocket.Dialer{HandshakeTimeout: time.Duration(c.cfg.Timeout)}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial obs %s: %w", url, err)
	}

	if err := c.identify(conn); err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	slog.Debug("obs session identified", "url", url)
	return nil
}

func (c *Client) identify(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(time.Duration(c.cfg.Timeout)))

	var hello envelope
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello (op %d), got op %d", opHello, hello.Op)
	}
	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	id := identifyData{RPCVersion: rpcVersion}
	if hd.Authentication != nil {
		id.Authentication = authResponse(c.cfg.Password, hd.Authentication.Salt, hd.Authentication.Challenge)
	}
	d, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(envelope{Op: opIdentify, D: d}); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}

	var identified envelope
	if err := conn.ReadJSON(&identified); err != nil {
		return fmt.Errorf("read identified: %w", err)
	}
	if identified.Op != opIdentified {
		return fmt.Errorf("authentication rejected (op %d)", identified.Op)
	}
	conn.SetReadDeadline(time.Time{})
	return nil
}

// authResponse computes the obs-websocket challenge response:
// base64(sha256(base64(sha256(password+salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	b64 := base64.StdEncoding.EncodeToString(secret[:])
	final := sha256.Sum256([]byte(b64 + challenge))
	return base64.StdEncoding.EncodeToString(final[:])
}

// Close tears down the session. Safe to call when not connected.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// request sends one request and waits for its response, skipping any event
// frames that arrive in between. On transport errors the session is dropped
// so the next Connect starts fresh.
func (c *Client) request(ctx context.Context, reqType string, data any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, fmt.Errorf("obs: not connected")
	}

	reqID := uuid.NewString()
	rd, err := json.Marshal(requestData{RequestType: reqType, RequestID: reqID, RequestData: data})
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(time.Duration(c.cfg.Timeout))
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(envelope{Op: opRequest, D: rd}); err != nil {
		c.drop()
		return nil, fmt.Errorf("send %s: %w", reqType, err)
	}

	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.drop()
			return nil, fmt.Errorf("read %s response: %w", reqType, err)
		}
		if env.Op == opEvent {
			continue
		}
		if env.Op != opResponse {
			continue
		}
		var resp responseData
		if err := json.Unmarshal(env.D, &resp); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", reqType, err)
		}
		if resp.RequestID != reqID {
			continue
		}
		if !resp.RequestStatus.Result {
			return nil, fmt.Errorf("%s failed: code %d: %s", reqType, resp.RequestStatus.Code, resp.RequestStatus.Comment)
		}
		return resp.ResponseData, nil
	}
}

// drop closes the connection without taking the mutex; callers hold it.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// CurrentProgramScene returns the name of the scene currently on program.
func (c *Client) CurrentProgramScene(ctx context.Context) (string, error) {
	raw, err := c.request(ctx, "GetCurrentProgramScene", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		CurrentProgramSceneName string `json:"currentProgramSceneName"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	return out.CurrentProgramSceneName, nil
}

// SetInputSettings overlays settings onto an input (text source, media
// source). Unspecified settings keep their current values.
func (c *Client) SetInputSettings(ctx context.Context, input string, settings map[string]any) error {
	_, err := c.request(ctx, "SetInputSettings", map[string]any{
		"inputName":     input,
		"inputSettings": settings,
		"overlay":       true,
	})
	return err
}

// SceneItemID looks up the numeric item id of a source within a scene.
// The second return value is false when the scene has no such source.
func (c *Client) SceneItemID(ctx context.Context, scene, source string) (int, bool, error) {
	raw, err := c.request(ctx, "GetSceneItemList", map[string]any{"sceneName": scene})
	if err != nil {
		return 0, false, err
	}
	var out struct {
		SceneItems []sceneItem `json:"sceneItems"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, false, err
	}
	for _, it := range out.SceneItems {
		if it.SourceName == source {
			return it.SceneItemID, true, nil
		}
	}
	return 0, false, nil
}

// SetSceneItemEnabled shows or hides a scene item.
func (c *Client) SetSceneItemEnabled(ctx context.Context, scene string, itemID int, enabled bool) error {
	_, err := c.request(ctx, "SetSceneItemEnabled", map[string]any{
		"sceneName":        scene,
		"sceneItemId":      itemID,
		"sceneItemEnabled": enabled,
	})
	return err
}

// RestartMedia restarts playback of a media input from the beginning.
func (c *Client) RestartMedia(ctx context.Context, input string) error {
	_, err := c.request(ctx, "TriggerMediaInputAction", map[string]any{
		"inputName":   input,
		"mediaAction": mediaActionRestart,
	})
	return err
}
