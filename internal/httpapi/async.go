package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
)

// Callback receives the outcome of an asynchronous request on the update
// goroutine.
type Callback func(ok bool, payload string)

// Go runs req on its own goroutine and posts done to the update goroutine.
func (c *Client) Go(req Request, done func(Result)) {
	go func() {
		res := c.Do(context.Background(), req)
		if done == nil {
			return
		}
		c.poster.Post(func() { done(res) })
	}()
}

// Request issues method against path and reports (success, payload) via cb.
func (c *Client) Request(method, path string, body any, token string, cb Callback) {
	c.Go(Request{Method: method, Path: path, Body: body, Token: token}, func(res Result) {
		if cb != nil {
			cb(res.Success, res.Payload())
		}
	})
}

func (c *Client) Get(path, token string, cb Callback) {
	c.Request(http.MethodGet, path, nil, token, cb)
}

func (c *Client) Post(path string, body any, token string, cb Callback) {
	c.Request(http.MethodPost, path, body, token, cb)
}

func (c *Client) Put(path string, body any, token string, cb Callback) {
	c.Request(http.MethodPut, path, body, token, cb)
}

func (c *Client) Delete(path, token string, cb Callback) {
	c.Request(http.MethodDelete, path, nil, token, cb)
}

// Upload posts data as a multipart file field. Uploads get twice the default
// timeout.
func (c *Client) Upload(path, field, filename string, data []byte, token string, cb Callback) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		msg := fmt.Sprintf("Network error: building upload: %v", err)
		c.poster.Post(func() {
			if cb != nil {
				cb(false, msg)
			}
		})
		return
	}

	req := Request{
		Method:      http.MethodPost,
		Path:        path,
		Token:       token,
		RawBody:     &buf,
		ContentType: w.FormDataContentType(),
		Timeout:     2 * c.timeout,
	}
	c.Go(req, func(res Result) {
		if cb != nil {
			cb(res.Success, res.Payload())
		}
	})
}

// Download fetches a binary asset. On failure data is nil and errMsg set.
func (c *Client) Download(path, token string, cb func(ok bool, data []byte, errMsg string)) {
	req := Request{
		Method: http.MethodGet,
		Path:   path,
		Token:  token,
		Accept: "application/octet-stream",
	}
	c.Go(req, func(res Result) {
		if cb == nil {
			return
		}
		if !res.Success {
			cb(false, nil, res.Payload())
			return
		}
		cb(true, res.Body, "")
	})
}
