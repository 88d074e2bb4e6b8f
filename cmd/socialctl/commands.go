package main

import (
	"fmt"

	"github.com/bionicotaku/lingo-services-social/internal/appstate"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var userID, token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session as the given user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			sess := &appstate.Session{Endpoint: c.endpoint, UserID: id, Token: token}
			api, err := c.newClient(ctx, sess)
			if err != nil {
				return err
			}
			defer api.Close()

			state := appstate.New()
			if err := state.Populate(ctx, api); err != nil {
				return err
			}
			sess.Username = state.User().Username
			if err := appstate.SaveSession(c.sessionPath, sess); err != nil {
				return err
			}
			c.printf("logged in as %s (%d saved, %d following)\n", sess.Username, len(state.SavedIDs()), len(state.FollowingIDs()))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id to act as")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token, required when the server verifies JWTs")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := appstate.RemoveSession(c.sessionPath); err != nil {
				return err
			}
			c.printf("logged out\n")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			state, api, err := c.restore(ctx)
			if err != nil {
				return err
			}
			defer api.Close()
			user := state.User()
			c.printf("%s\t%s\t%s\n", user.ID, user.Username, user.Email)
			return nil
		},
	}
}

func (c *cli) savedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List saved videos in bookmark order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			sess, err := appstate.LoadSession(c.sessionPath)
			if err != nil {
				return err
			}
			if sess == nil {
				return errNoSession
			}
			api, err := c.newClient(ctx, sess)
			if err != nil {
				return err
			}
			defer api.Close()

			videos, err := api.SavedVideos(ctx)
			if err != nil {
				return err
			}
			for _, v := range videos {
				creator := v.Creator.Username
				if !v.Creator.Resolved {
					creator = "(unknown creator)"
				}
				c.printf("%s\t%s\t%s\n", v.ID, v.Title, creator)
			}
			if len(videos) == 0 {
				c.printf("no saved videos\n")
			}
			return nil
		},
	}
}

func (c *cli) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <video-id>",
		Short: "Save a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid video id: %w", err)
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			state, api, err := c.restore(ctx)
			if err != nil {
				return err
			}
			defer api.Close()
			if err := state.SaveVideo(ctx, api, videoID); err != nil {
				return err
			}
			c.printf("saved %s\n", videoID)
			return nil
		},
	}
}

func (c *cli) unsaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsave <video-id>",
		Short: "Remove a video from saved videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid video id: %w", err)
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			state, api, err := c.restore(ctx)
			if err != nil {
				return err
			}
			defer api.Close()
			if err := state.UnsaveVideo(ctx, api, videoID); err != nil {
				return err
			}
			c.printf("unsaved %s\n", videoID)
			return nil
		},
	}
}

func (c *cli) followCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Toggle following a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			state, api, err := c.restore(ctx)
			if err != nil {
				return err
			}
			defer api.Close()
			following, err := state.ToggleFollow(ctx, api, userID)
			if err != nil {
				return err
			}
			if following {
				c.printf("following %s\n", userID)
			} else {
				c.printf("unfollowed %s\n", userID)
			}
			return nil
		},
	}
}

func (c *cli) followingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "following",
		Short: "List followed users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			state, api, err := c.restore(ctx)
			if err != nil {
				return err
			}
			defer api.Close()
			for _, id := range state.FollowingIDs() {
				c.printf("%s\n", id)
			}
			return nil
		},
	}
}
