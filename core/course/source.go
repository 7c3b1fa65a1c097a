package course

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
	"github.com/included-edu/included/core/extract"
)

var errPrivateAddress = errors.New("source url resolves to a non public address")

// carrier-grade NAT, not covered by net.IP.IsPrivate
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// newFetcher returns the client downloading source urls. Unless private hosts are allowed,
// every connection (redirects included) is refused when it targets a non public address.
func newFetcher(conf *core.Config) *resty.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !conf.Generation.FetchPrivateHost {
		dialer.Control = publicAddressOnly
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return resty.New().
		SetTransport(transport).
		SetTimeout(conf.Generation.FetchTimeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", conf.AppName+"/"+conf.Build).
		SetRetryCount(0)
}

// publicAddressOnly is a net.Dialer Control func; address is the resolved ip:port.
func publicAddressOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrapf(err, "dialing %s", address)
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return errors.Wrapf(errPrivateAddress, "dialing %s %s", network, address)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		sharedAddressSpace.Contains(ip))
}

// isPrivateHost catches literal addresses and local names before any request is made.
// Names resolving to private addresses are refused later, when dialing.
func isPrivateHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return !isPublicIP(ip)
	}
	return false
}

// fetch downloads a syllabus. The response Content-Type is its declared media type.
func (p *Pipeline) fetch(ctx context.Context, sourceURL string) (extract.Document, error) {
	res, err := p.fetcher.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(sourceURL)
	if err != nil {
		return extract.Document{}, core.NewKindError(extract.ErrExtractionFailure, errors.Wrap(err, "fetching source url"))
	}
	body := res.RawBody()
	defer body.Close()

	if !res.IsSuccess() {
		return extract.Document{}, core.NewKindError(extract.ErrExtractionFailure, errors.Errorf("fetching source url: status %d", res.StatusCode()))
	}
	contentType := res.Header().Get("Content-Type")
	if _, err = extract.ParseMediaType(contentType); err != nil {
		return extract.Document{}, err
	}

	data, err := io.ReadAll(io.LimitReader(body, p.maxDocBytes+1))
	if err != nil {
		return extract.Document{}, core.NewKindError(extract.ErrExtractionFailure, errors.Wrap(err, "reading source url"))
	}
	if int64(len(data)) > p.maxDocBytes {
		return extract.Document{}, core.NewKindError(extract.ErrDocumentTooLarge, errors.Errorf("source document larger than %d bytes", p.maxDocBytes))
	}
	return extract.Document{Data: data, MediaType: contentType, Filename: sourceURL}, nil
}
