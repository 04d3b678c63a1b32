// Package learning is an online, multi-strategy learning engine. It ingests
// discrete experience records (context, action, outcome, reward) and
// continuously updates competing optimization strategies, a
// momentum-adaptive gradient optimizer and a Bayesian hyperparameter
// optimizer, alongside a tabular Q-learning agent, while tracking rolling
// performance analytics.
//
// The root package is the request-facing surface: a Handler owns one engine
// instance and dispatches action-tagged requests to it, returning structured
// success/failure responses rather than errors that abort the caller.
//
// Basic usage:
//
//	cfg := learning.Config{LearningRate: 0.01}
//	h, err := learning.NewHandler(cfg)
//	if err != nil {
//	    return err
//	}
//
//	resp := h.Handle(ctx, learning.Request{
//	    Action: learning.ActionLearn,
//	    Experience: &experience.Raw{
//	        ActionTaken: "scale_up",
//	        Outcome:     experience.Outcome{Performance: 0.8},
//	        Reward:      1.0,
//	    },
//	})
//	if !resp.Success {
//	    log.Printf("learn failed: %s", resp.Error)
//	}
//
//	analytics := h.Handle(ctx, learning.Request{Action: learning.ActionAnalytics})
//
// The engine package exposes the orchestrator directly for callers that do
// not want the request envelope; strategy, qlearn, experience, admission,
// and journal hold the individual building blocks.
package learning
