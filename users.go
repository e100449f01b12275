package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tweetty/crud"
	"tweetty/database"
	"tweetty/domain"
	"tweetty/errs"
)

// usersCmd groups the administration commands. Users can't sign up through
// the api, they are managed exclusively with these commands.
func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	cmd.AddCommand(
		a.userAddCmd(),
		a.userRemoveCmd(),
		a.userUpdateCmd(),
		a.userNewAPIKeyCmd(),
		a.userGetCmd(),
		a.userListCmd(),
		a.userSearchCmd(),
		a.userFollowCmd(),
		a.userUnfollowCmd(),
		a.userFollowedCmd(),
	)
	return cmd
}

// withServices loads the configuration, opens the database and runs fn with
// the user and follow services.
func (a *app) withServices(ctx context.Context, fn func(*crud.Services) error) error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(config)
	if err != nil {
		return err
	}
	defer database.Close(db)

	store, err := newMediaStore(ctx, config.Media)
	if err != nil {
		return err
	}
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithUser(config.APIKeyPrefix, store),
		crud.WithFollow(),
	)
	if err != nil {
		return err
	}
	return fn(services)
}

func (a *app) userAddCmd() *cobra.Command {
	var firstName, lastName string
	cmd := &cobra.Command{
		Use:   "add NICKNAME",
		Short: "Create a user and print its api key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := &domain.User{Nickname: args[0]}
			if cmd.Flags().Changed("first-name") {
				user.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				user.LastName = &lastName
			}
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				if err := s.User.Create(cmd.Context(), user); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "User added.")
				printUser(out, user, true)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&firstName, "first-name", "f", "", "First name of the user.")
	cmd.Flags().StringVarP(&lastName, "last-name", "l", "", "Last name of the user.")
	return cmd
}

func (a *app) userRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NICKNAME",
		Short: "Delete a user with all their tweets, medias, likes and follows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				user, err := s.User.ByNickname(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := s.User.Delete(cmd.Context(), user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %q deleted\n", user.Nickname)
				return nil
			})
		},
	}
}

func (a *app) userUpdateCmd() *cobra.Command {
	var firstName, lastName string
	var resetFirstName, resetLastName bool
	cmd := &cobra.Command{
		Use:   "update NICKNAME",
		Short: "Change the names of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				user, err := s.User.ByNickname(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("first-name") {
					user.FirstName = &firstName
				}
				if cmd.Flags().Changed("last-name") {
					user.LastName = &lastName
				}
				if resetFirstName {
					user.FirstName = nil
				}
				if resetLastName {
					user.LastName = nil
				}
				if err := s.User.Update(cmd.Context(), user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %q updated\n", user.Nickname)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&firstName, "first-name", "f", "", "New first name of the user.")
	cmd.Flags().StringVarP(&lastName, "last-name", "l", "", "New last name of the user.")
	cmd.Flags().BoolVar(&resetFirstName, "reset-first-name", false, "Remove the first name of the user.")
	cmd.Flags().BoolVar(&resetLastName, "reset-last-name", false, "Remove the last name of the user.")
	cmd.MarkFlagsMutuallyExclusive("first-name", "reset-first-name")
	cmd.MarkFlagsMutuallyExclusive("last-name", "reset-last-name")
	return cmd
}

func (a *app) userNewAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new_api_key NICKNAME",
		Short: "Replace the api key of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				user, err := s.User.ByNickname(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := s.User.RenewAPIKey(cmd.Context(), user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "New Api Key for user %q: %s\n", user.Nickname, user.APIKey)
				return nil
			})
		},
	}
}

func (a *app) userGetCmd() *cobra.Command {
	var showAPIKey bool
	cmd := &cobra.Command{
		Use:   "get NICKNAME",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				user, err := s.User.ByNickname(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printUser(cmd.OutOrStdout(), user, showAPIKey)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&showAPIKey, "show-api-key", "a", false, "Also print the api key.")
	return cmd
}

// listFlags are the flags shared by the list and search commands.
type listFlags struct {
	page       int
	limit      int
	showAPIKey bool
}

func (lf *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&lf.page, "page", "p", 1, "Page number, starting at 1.")
	cmd.Flags().IntVarP(&lf.limit, "limit", "l", 10, "Users per page.")
	cmd.Flags().BoolVarP(&lf.showAPIKey, "show-api-key", "a", false, "Also print the api keys.")
}

// run lists the users matching search and prints them.
func (lf *listFlags) run(cmd *cobra.Command, a *app, search string) error {
	if lf.page < 1 || lf.limit < 1 {
		return errs.Errorf(errs.EINVALID, "Page and limit must be positive.")
	}
	return a.withServices(cmd.Context(), func(s *crud.Services) error {
		users, err := s.User.List(cmd.Context(), domain.UserFilter{
			Search: search,
			Page:   domain.Page{Number: lf.page, Size: lf.limit},
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Page %d. Users per page: %d\n", lf.page, lf.limit)
		for i := range users {
			fmt.Fprintln(out)
			printUser(out, &users[i], lf.showAPIKey)
		}
		return nil
	})
}

func (a *app) userListCmd() *cobra.Command {
	lf := &listFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all users ordered by nickname",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return lf.run(cmd, a, "")
		},
	}
	lf.register(cmd)
	return cmd
}

func (a *app) userSearchCmd() *cobra.Command {
	lf := &listFlags{}
	cmd := &cobra.Command{
		Use:   "search TEXT",
		Short: "List the users whose nickname or names contain TEXT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lf.run(cmd, a, args[0])
		},
	}
	lf.register(cmd)
	return cmd
}

// followPair resolves the two nicknames of the follow commands. The followed
// user comes first.
func followPair(ctx context.Context, s *crud.Services, followed, follower string) (*domain.Follower, error) {
	u, err := s.User.ByNickname(ctx, followed)
	if err != nil {
		return nil, err
	}
	f, err := s.User.ByNickname(ctx, follower)
	if err != nil {
		return nil, err
	}
	return &domain.Follower{UserID: u.ID, FollowerID: f.ID}, nil
}

func (a *app) userFollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow USER FOLLOWER",
		Short: "Make FOLLOWER follow USER",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				follow, err := followPair(cmd.Context(), s, args[0], args[1])
				if err != nil {
					return err
				}
				if _, err := s.Follow.Create(cmd.Context(), follow); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %q now follows user %q\n", args[1], args[0])
				return nil
			})
		},
	}
}

func (a *app) userUnfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow USER FOLLOWER",
		Short: "Make FOLLOWER stop following USER",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				follow, err := followPair(cmd.Context(), s, args[0], args[1])
				if err != nil {
					return err
				}
				if err := s.Follow.Delete(cmd.Context(), follow); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %q no longer follows user %q\n", args[1], args[0])
				return nil
			})
		},
	}
}

func (a *app) userFollowedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "followed USER FOLLOWER",
		Short: "Tell whether FOLLOWER follows USER",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(s *crud.Services) error {
				follow, err := followPair(cmd.Context(), s, args[0], args[1])
				if err != nil {
					return err
				}
				ok, err := s.Follow.Exists(cmd.Context(), follow)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(cmd.OutOrStdout(), "followed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "not followed")
				}
				return nil
			})
		},
	}
}

// printUser writes the fields of a user, one per line.
func printUser(w io.Writer, user *domain.User, showAPIKey bool) {
	fmt.Fprintf(w, "Nickname: %s\n", user.Nickname)
	fmt.Fprintf(w, "First name: %s\n", optional(user.FirstName))
	fmt.Fprintf(w, "Last name: %s\n", optional(user.LastName))
	if showAPIKey {
		fmt.Fprintf(w, "Api Key: %s\n", user.APIKey)
	}
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
