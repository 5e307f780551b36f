package client

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Do sends req with the current access token and decodes a 2xx JSON body into out.
//
// When the API answers 401 and a refresh handler is registered, the token is
// refreshed and the identical request is sent once more with whatever token is
// current at that moment. If the refresh fails its error is returned instead of the
// 401. A 401 on the retried request is returned as is. Concurrent 401s share a
// single refresh.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	cl, err := newCall(req)
	if err != nil {
		return err
	}

	for {
		token := c.AuthToken()
		resp, err := c.send(ctx, cl, token)
		if err != nil {
			return err
		}

		if resp.status == http.StatusUnauthorized && !cl.alreadyRetried {
			if handler := c.refreshHandler(); handler != nil {
				cl.alreadyRetried = true
				log.Info().Str("method", req.Method).Str("path", req.Path).Msg("Access token rejected, refreshing")
				if err := c.refreshOnce(ctx, handler, token); err != nil {
					return err
				}
				continue
			}
		}
		return finish(cl, resp, out)
	}
}

// doUnguarded sends req with an explicit token and no refresh handling.
func (c *Client) doUnguarded(ctx context.Context, req *Request, token string, out any) error {
	cl, err := newCall(req)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, cl, token)
	if err != nil {
		return err
	}
	return finish(cl, resp, out)
}

// refreshOnce runs handler through the client's single-flight group. staleToken is the
// token the failed request was sent with. If another call has already replaced it, no
// new refresh is started. If it has been cleared since, the session is over and the
// failure that ended it is returned without refreshing again.
func (c *Client) refreshOnce(ctx context.Context, handler RefreshFunc, staleToken string) error {
	ch := c.flight.DoChan("refresh", func() (any, error) {
		current := c.AuthToken()
		switch {
		case current != "" && current != staleToken:
			log.Debug().Msg("Access token already replaced, skipping refresh")
			return nil, nil
		case current == "" && staleToken != "":
			log.Debug().Msg("Session ended while the request was in flight, skipping refresh")
			return nil, c.endedSessionError()
		}
		if err := handler(context.WithoutCancel(ctx)); err != nil {
			c.recordRefreshFailure(err)
			return nil, err
		}
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
