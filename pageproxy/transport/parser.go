package transport

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrEmptyResponse   = errors.New("empty response")
	ErrInvalidResponse = errors.New("invalid status line")
	ErrBodyTooLarge    = errors.New("response body exceeds limit")
)

// parseResponse parses an HTTP/1.1 response from the reader.
// The request method is needed to determine body handling for HEAD responses.
// maxBody limits the body size, 0 means unlimited.
func parseResponse(br *bufio.Reader, requestMethod string, maxBody int) (*Response, error) {
	resp, err := parseResponseHead(br)
	if err != nil {
		return nil, err
	}

	// HEAD responses have no body
	if requestMethod == "HEAD" {
		return resp, nil
	}
	// 1xx, 204, 304 responses have no body
	if resp.StatusCode < 200 || resp.StatusCode == 204 || resp.StatusCode == 304 {
		return resp, nil
	}

	if resp.Body, err = readResponseBody(br, resp, maxBody); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return resp, nil
}

// parseResponseHead reads the status line and headers only.
// Used directly for CONNECT replies where no body follows.
func parseResponseHead(br *bufio.Reader) (*Response, error) {
	line, err := readLine(br)
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) == 0 {
			return nil, ErrEmptyResponse
		} else if len(line) == 0 {
			return nil, err
		}
		// Continue with partial line
	}

	version, code, text, err := parseStatusLine(line)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Version:    version,
		StatusCode: code,
		StatusText: text,
	}
	if resp.Headers, err = readHeaders(br); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return resp, nil
}

// readLine reads a line from the reader, handling both CRLF and bare LF.
// Returns the line without the line ending.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := br.ReadBytes('\n')
	if err != nil {
		return bytes.TrimSuffix(line, []byte("\r")), err
	}
	line = line[:len(line)-1]
	return bytes.TrimSuffix(line, []byte("\r")), nil
}

// parseStatusLine extracts version, status code, status text from status line.
func parseStatusLine(line []byte) (version string, code int, text string, err error) {
	parts := strings.SplitN(string(line), " ", 3)
	if len(parts) < 2 {
		return "", 0, "", ErrInvalidResponse
	}

	version = parts[0]
	if !strings.HasPrefix(version, "HTTP/") {
		return "", 0, "", ErrInvalidResponse
	}
	code, err = strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 999 {
		return "", 0, "", ErrInvalidResponse
	}
	if len(parts) >= 3 {
		text = parts[2]
	}
	return version, code, text, nil
}

// readHeaders reads header lines until the blank line, joining obs-fold
// continuation lines onto the previous header.
func readHeaders(br *bufio.Reader) (Headers, error) {
	var headers Headers
	for {
		line, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return headers, err
		}
		if len(line) == 0 {
			return headers, err
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(headers) > 0 {
				headers[len(headers)-1].Value += " " + strings.TrimLeft(string(line), " \t")
			}
		} else {
			headers = append(headers, parseHeaderLine(line))
		}

		if errors.Is(err, io.EOF) {
			return headers, nil
		}
	}
}

// parseHeaderLine parses "Name: Value" into Header struct.
func parseHeaderLine(line []byte) Header {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return Header{Name: string(line)}
	}
	return Header{
		Name:  string(line[:idx]),
		Value: strings.TrimSpace(string(line[idx+1:])),
	}
}

// readResponseBody reads the response body honoring chunked framing and
// Content-Length, falling back to read-until-EOF.
func readResponseBody(br *bufio.Reader, resp *Response, maxBody int) ([]byte, error) {
	// chunked takes precedence over Content-Length
	te := resp.GetHeader("Transfer-Encoding")
	if strings.Contains(strings.ToLower(te), "chunked") {
		return readChunkedBody(br, maxBody)
	}

	if clStr := resp.GetHeader("Content-Length"); clStr != "" {
		cl, err := strconv.ParseInt(clStr, 10, 64)
		if err == nil && cl >= 0 {
			if cl == 0 {
				return nil, nil
			} else if maxBody > 0 && cl > int64(maxBody) {
				return nil, fmt.Errorf("%w: content-length %d", ErrBodyTooLarge, cl)
			}
			body := make([]byte, cl)
			_, err = io.ReadFull(br, body)
			return body, err
		}
		// invalid Content-Length, read to EOF
	}

	return readToEOF(br, maxBody)
}

func readToEOF(r io.Reader, maxBody int) ([]byte, error) {
	if maxBody <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, int64(maxBody)+1))
	if err != nil {
		return body, err
	} else if len(body) > maxBody {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// readChunkedBody reads chunked transfer encoding, discarding trailers.
func readChunkedBody(br *bufio.Reader, maxBody int) ([]byte, error) {
	var bodyBuf bytes.Buffer
	for {
		sizeLine, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return bodyBuf.Bytes(), err
		}

		// chunk extensions follow ';'
		sizeStr := string(sizeLine)
		if idx := strings.IndexByte(sizeStr, ';'); idx >= 0 {
			sizeStr = sizeStr[:idx]
		}
		size, parseErr := strconv.ParseInt(strings.TrimSpace(sizeStr), 16, 64)
		if parseErr != nil {
			// Invalid chunk size - return what we have
			return bodyBuf.Bytes(), nil
		} else if size == 0 {
			skipTrailers(br)
			return bodyBuf.Bytes(), nil
		} else if maxBody > 0 && int64(bodyBuf.Len())+size > int64(maxBody) {
			return nil, ErrBodyTooLarge
		}

		if _, err = io.CopyN(&bodyBuf, br, size); err != nil {
			return bodyBuf.Bytes(), err
		}
		// trailing CRLF after chunk data
		_, _ = readLine(br)
	}
}

func skipTrailers(br *bufio.Reader) {
	for {
		line, err := readLine(br)
		if err != nil || len(line) == 0 {
			return
		}
	}
}

// writeRequest serializes req. absoluteForm selects the proxy request-target
// ("GET http://host/path HTTP/1.1") over origin-form ("GET /path HTTP/1.1").
// Host is derived from the URL when missing, Content-Length is recomputed
// from the body, and Connection is forced to close since every connection
// carries exactly one exchange.
func writeRequest(buf *bytes.Buffer, req *Request, absoluteForm bool, proxyAuth string) []byte {
	buf.Reset()

	target := req.URL.RequestURI()
	if absoluteForm {
		target = req.URL.Scheme + "://" + req.URL.Host + target
	}
	buf.WriteString(req.Method)
	buf.WriteByte(' ')
	buf.WriteString(target)
	buf.WriteString(" HTTP/1.1\r\n")

	if req.Headers.Get("Host") == "" {
		writeHeader(buf, "Host", req.URL.Host)
	}
	for _, h := range req.Headers {
		switch strings.ToLower(h.Name) {
		case "content-length", "transfer-encoding", "connection", "proxy-connection",
			"keep-alive", "proxy-authorization":
			continue
		}
		writeHeader(buf, h.Name, h.Value)
	}
	if proxyAuth != "" {
		writeHeader(buf, "Proxy-Authorization", proxyAuth)
	}
	if len(req.Body) > 0 || methodExpectsBody(req.Method) {
		writeHeader(buf, "Content-Length", strconv.Itoa(len(req.Body)))
	}
	writeHeader(buf, "Connection", "close")
	buf.WriteString("\r\n")
	buf.Write(req.Body)
	return buf.Bytes()
}

// writeConnect serializes a CONNECT request for the tunnel agent.
func writeConnect(buf *bytes.Buffer, authority, proxyAuth string) []byte {
	buf.Reset()
	buf.WriteString("CONNECT ")
	buf.WriteString(authority)
	buf.WriteString(" HTTP/1.1\r\n")
	writeHeader(buf, "Host", authority)
	if proxyAuth != "" {
		writeHeader(buf, "Proxy-Authorization", proxyAuth)
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func methodExpectsBody(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

// proxyAuthorization returns the Basic credentials embedded in a proxy URL,
// or empty when the URL carries none.
func proxyAuthorization(proxyURL *url.URL) string {
	if proxyURL == nil || proxyURL.User == nil {
		return ""
	}
	password, _ := proxyURL.User.Password()
	creds := proxyURL.User.Username() + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}
