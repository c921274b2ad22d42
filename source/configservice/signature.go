package configservice

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"
)

const (
	headerAuthorization = "Authorization"
	headerTimestamp     = "Timestamp"
	authorizationPrefix = "Apollo"
)

// signature returns base64(HMAC-SHA1(secret, timestamp + "\n" + pathWithQuery)).
func signature(timestamp, pathWithQuery, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + pathWithQuery))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// sign sets the access key headers on req.
func sign(req *http.Request, appID, secret string, now time.Time) {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	sig := signature(ts, req.URL.RequestURI(), secret)
	req.Header.Set(headerAuthorization, authorizationPrefix+" "+appID+":"+sig)
	req.Header.Set(headerTimestamp, ts)
}
