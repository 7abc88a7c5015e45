package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"winekiosk/store"
)

// Client talks to the bottle store service. Reads are issued fresh before
// every occupancy-dependent decision; nothing here caches.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Snapshot fetches the current inventory.
func (c *Client) Snapshot() (*store.Inventory, error) {
	var inv store.Inventory
	if err := c.get("/inventory", &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Extracted fetches the extracted-bottle ledger.
func (c *Client) Extracted() (store.Ledger, error) {
	var ledger store.Ledger
	if err := c.get("/extracted", &ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

type UpdateInventoryRequest struct {
	Mode     string `json:"mode"`
	Target   int    `json:"target"`
	Humidity int    `json:"humidity"`
	Zone     string `json:"zone"`
}

// UpdateInventory writes zone climate settings directly to the store. This
// runs in parallel with the bus command so the home screen can reflect the
// new values before the controller confirms.
func (c *Client) UpdateInventory(req *UpdateInventoryRequest) error {
	var resp Response
	if err := c.post("/update-inventory", req, &resp); err != nil {
		return err
	}
	return checkResponse(&resp)
}

type SwapRequest struct {
	From store.Location `json:"from"`
	To   store.Location `json:"to"`
}

func (c *Client) SwapBottles(from, to store.Location) error {
	var resp Response
	if err := c.post("/swap-bottles", &SwapRequest{From: from, To: to}, &resp); err != nil {
		return err
	}
	return checkResponse(&resp)
}

type BottleRequest struct {
	Barcode  string `json:"barcode"`
	Drawer   string `json:"drawer"`
	Position int    `json:"position"`
}

// RemoveBottle commits a removal: the slot is freed and any pending ledger
// entry for the barcode is cleared.
func (c *Client) RemoveBottle(barcode, drawer string, position int) error {
	var resp Response
	if err := c.post("/remove-bottle", &BottleRequest{Barcode: barcode, Drawer: drawer, Position: position}, &resp); err != nil {
		return err
	}
	return checkResponse(&resp)
}

// AddExtracted records an unauthorized removal in the ledger.
func (c *Client) AddExtracted(barcode, drawer string, position int) error {
	var resp Response
	if err := c.post("/add-extracted-bottle", &BottleRequest{Barcode: barcode, Drawer: drawer, Position: position}, &resp); err != nil {
		return err
	}
	return checkResponse(&resp)
}

// RemoveExtracted clears a barcode's ledger entry after its return.
func (c *Client) RemoveExtracted(barcode string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/remove-extracted-bottle/"+url.PathEscape(barcode), nil)
	if err != nil {
		return err
	}
	var resp Response
	if err := c.do(req, &resp); err != nil {
		return err
	}
	return checkResponse(&resp)
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inventory: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp Response
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("inventory: %s %s: %s", req.Method, req.URL.Path, errResp.Error)
		}
		return fmt.Errorf("inventory: %s %s: HTTP %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("inventory: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func checkResponse(resp *Response) error {
	if resp.Error != "" {
		return fmt.Errorf("inventory: %s", resp.Error)
	}
	return nil
}
